package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/devpystudio/backend/internal/blog"
	"github.com/devpystudio/backend/internal/middleware"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postsPageResponse struct {
	Success     bool        `json:"success"`
	Posts       []blog.Post `json:"posts"`
	Total       int         `json:"total"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
}

type singlePostResponse struct {
	Success bool       `json:"success"`
	Post    *blog.Post `json:"post"`
}

func testDraft(category string, tags ...string) blog.Draft {
	return blog.Draft{
		Title:    gofakeit.Sentence(4),
		Excerpt:  gofakeit.Sentence(10),
		Content:  gofakeit.Paragraph(2, 4, 20, " "),
		Category: category,
		Author:   blog.Author{Name: gofakeit.Name()},
		Tags:     tags,
	}
}

func (s *IntegrationTestSuite) newPostRequest(
	ctx context.Context,
	authToken string,
	draft blog.Draft,
) *blog.Post {
	draftJson, err := json.Marshal(draft)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/api/admin/posts", serverEndpoint),
		bytes.NewReader(draftJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(middleware.AuthTokenHeader, authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var postResp singlePostResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&postResp))
	require.True(s.T(), postResp.Success)
	require.NotNil(s.T(), postResp.Post)
	require.NotEmpty(s.T(), postResp.Post.ID)

	return postResp.Post
}

func (s *IntegrationTestSuite) getPostsPage(
	ctx context.Context,
	page int,
	category string,
	search string,
) postsPageResponse {
	query := url.Values{}
	if page > 0 {
		query.Set("page", fmt.Sprintf("%d", page))
	}
	if category != "" {
		query.Set("category", category)
	}
	if search != "" {
		query.Set("search", search)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/api/posts?%s", serverEndpoint, query.Encode()),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var pageResp postsPageResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&pageResp))
	require.True(s.T(), pageResp.Success)

	return pageResp
}

func (s *IntegrationTestSuite) getPost(
	ctx context.Context,
	postID string,
	viewerCookie *http.Cookie,
) (*http.Response, singlePostResponse) {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/api/posts/%s", serverEndpoint, postID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	if viewerCookie != nil {
		req.AddCookie(viewerCookie)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var postResp singlePostResponse
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&postResp))
	require.True(s.T(), postResp.Success)
	require.NotNil(s.T(), postResp.Post)

	return resp, postResp
}

func (s *IntegrationTestSuite) deletePostRequest(
	ctx context.Context,
	authToken string,
	postID string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/api/admin/posts/%s", serverEndpoint, postID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(middleware.AuthTokenHeader, authToken)

	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) TestPosts() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("try add post without auth token", func(t *testing.T) {
		draftJson, err := json.Marshal(testDraft("web-development"))
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/api/admin/posts", serverEndpoint),
			bytes.NewReader(draftJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	s.T().Run("post lifecycle", func(t *testing.T) {
		authToken := s.doLogin(ctx)

		post1 := s.newPostRequest(ctx, authToken, testDraft("web-development", "go", "backend"))
		post2 := s.newPostRequest(ctx, authToken, testDraft("ai-ml", "ml"))

		require.Equal(t, "published", post1.Status)
		require.Equal(t, "./images/posts/placeholder.jpg", post1.Image)
		require.NotEmpty(t, post1.ReadTime)
		require.Zero(t, post1.Views)

		postsPage := s.getPostsPage(ctx, 1, "", "")
		require.Equal(t, 2, postsPage.Total)
		require.Len(t, postsPage.Posts, 2)
		// newest first
		require.Equal(t, post2.ID, postsPage.Posts[0].ID)
		require.Equal(t, post1.ID, postsPage.Posts[1].ID)

		filteredPage := s.getPostsPage(ctx, 1, "ai-ml", "")
		require.Equal(t, 1, filteredPage.Total)
		require.Equal(t, post2.ID, filteredPage.Posts[0].ID)

		searchPage := s.getPostsPage(ctx, 1, "", "backend")
		require.Equal(t, 1, searchPage.Total)
		require.Equal(t, post1.ID, searchPage.Posts[0].ID)

		// first visit counts a view and hands out a viewer session cookie
		resp, postResp := s.getPost(ctx, post1.ID, nil)
		require.Equal(t, 1, postResp.Post.Views)
		var viewerCookie *http.Cookie
		for _, cookie := range resp.Cookies() {
			if cookie.Name == blog.ViewerSessionCookie {
				viewerCookie = cookie
			}
		}
		require.NotNil(t, viewerCookie)

		// revisit within the same session, the counter stays put
		_, postResp = s.getPost(ctx, post1.ID, viewerCookie)
		require.Equal(t, 1, postResp.Post.Views)

		// a fresh session counts another view
		_, postResp = s.getPost(ctx, post1.ID, nil)
		require.Equal(t, 2, postResp.Post.Views)

		// update the title, id and publish date stay the same
		newTitle := "updated title"
		patchJson, err := json.Marshal(map[string]any{"title": newTitle})
		require.NoError(t, err)
		req, err := http.NewRequestWithContext(
			ctx,
			"PUT", fmt.Sprintf("%s/api/admin/posts/%s", serverEndpoint, post1.ID),
			bytes.NewReader(patchJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(middleware.AuthTokenHeader, authToken)
		req.Header.Set("Content-Type", "application/json")

		updateResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, updateResp.StatusCode)
		var updatedPostResp singlePostResponse
		require.NoError(t, json.NewDecoder(updateResp.Body).Decode(&updatedPostResp))
		assert.NoError(t, updateResp.Body.Close())
		require.Equal(t, post1.ID, updatedPostResp.Post.ID)
		require.Equal(t, newTitle, updatedPostResp.Post.Title)
		require.Equal(t, post1.PublishDate.Unix(), updatedPostResp.Post.PublishDate.Unix())
		require.Equal(t, 2, updatedPostResp.Post.Views)

		// try delete with invalid token
		deleteResp, err := s.deletePostRequest(ctx, "invalid-token", post1.ID)
		require.NoError(t, err)
		assert.NoError(t, deleteResp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, deleteResp.StatusCode)

		// delete with valid token
		deleteResp, err = s.deletePostRequest(ctx, authToken, post1.ID)
		require.NoError(t, err)
		assert.NoError(t, deleteResp.Body.Close())
		assert.Equal(t, http.StatusOK, deleteResp.StatusCode)

		postsPage = s.getPostsPage(ctx, 1, "", "")
		require.Equal(t, 1, postsPage.Total)
		require.Equal(t, post2.ID, postsPage.Posts[0].ID)

		// clear all posts
		req, err = http.NewRequestWithContext(
			ctx,
			"DELETE", fmt.Sprintf("%s/api/admin/posts", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(middleware.AuthTokenHeader, authToken)

		clearResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, clearResp.Body.Close())
		require.Equal(t, http.StatusOK, clearResp.StatusCode)

		postsPage = s.getPostsPage(ctx, 1, "", "")
		require.Equal(t, 0, postsPage.Total)
		require.Empty(t, postsPage.Posts)
	})
}
