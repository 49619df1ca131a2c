package blog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postAt(id, title, category string, publishDate time.Time, tags ...string) Post {
	return Post{
		ID:          id,
		Title:       title,
		Excerpt:     fmt.Sprintf("excerpt of %s", title),
		Content:     "content",
		Category:    category,
		Author:      Author{Name: "Maja"},
		Tags:        tags,
		Status:      StatusPublished,
		PublishDate: publishDate,
	}
}

func TestPublished(t *testing.T) {
	now := time.Now()
	draft := postAt("1", "a draft", CategoryAiMl, now)
	draft.Status = StatusDraft
	posts := []Post{
		postAt("2", "published one", CategoryAiMl, now),
		draft,
	}

	published := Published(posts)
	require.Len(t, published, 1)
	assert.Equal(t, "2", published[0].ID)
}

func TestFilterPosts_category(t *testing.T) {
	now := time.Now()
	posts := []Post{
		postAt("1", "go post", CategoryWebDevelopment, now),
		postAt("2", "ml post", CategoryAiMl, now),
		postAt("3", "another go post", CategoryWebDevelopment, now),
	}

	filtered := FilterPosts(posts, CategoryWebDevelopment, "")
	require.Len(t, filtered, 2)
	// incoming order preserved
	assert.Equal(t, "1", filtered[0].ID)
	assert.Equal(t, "3", filtered[1].ID)

	assert.Len(t, FilterPosts(posts, CategoryFilterAll, ""), 3)
	assert.Len(t, FilterPosts(posts, "", ""), 3)
	assert.Empty(t, FilterPosts(posts, CategoryDatabase, ""))
}

func TestFilterPosts_search(t *testing.T) {
	now := time.Now()
	posts := []Post{
		postAt("1", "Scaling Postgres", CategoryDatabase, now, "postgres", "performance"),
		postAt("2", "Intro to Go", CategoryWebDevelopment, now, "golang"),
		postAt("3", "Kubernetes basics", CategoryCloudDevops, now, "k8s"),
	}

	// case-insensitive title match
	found := FilterPosts(posts, "", "pOstGres")
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)

	// tag-only match
	found = FilterPosts(posts, "", "golang")
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)

	// excerpt match
	found = FilterPosts(posts, "", "excerpt of kubernetes")
	require.Len(t, found, 1)
	assert.Equal(t, "3", found[0].ID)

	assert.Empty(t, FilterPosts(posts, "", "no such thing"))

	// category and search combined
	found = FilterPosts(posts, CategoryDatabase, "postgres")
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)
}

func TestSortNewestFirst(t *testing.T) {
	now := time.Now()
	posts := []Post{
		postAt("a", "older", CategoryAiMl, now.Add(-time.Hour)),
		postAt("b", "newest", CategoryAiMl, now),
		postAt("c", "same moment", CategoryAiMl, now),
	}

	SortNewestFirst(posts)

	// same publish date falls back to descending id
	assert.Equal(t, "c", posts[0].ID)
	assert.Equal(t, "b", posts[1].ID)
	assert.Equal(t, "a", posts[2].ID)
}

func TestPaginate(t *testing.T) {
	now := time.Now()
	var posts []Post
	for i := 0; i < 14; i++ {
		posts = append(posts, postAt(fmt.Sprintf("%d", i), "post", CategoryAiMl, now))
	}

	page1 := Paginate(posts, 1)
	assert.Len(t, page1.Posts, PageSize)
	assert.Equal(t, 14, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, 1, page1.CurrentPage)

	page3 := Paginate(posts, 3)
	assert.Len(t, page3.Posts, 2)
	assert.Equal(t, 3, page3.CurrentPage)

	// out of range pages come back empty
	page5 := Paginate(posts, 5)
	assert.Empty(t, page5.Posts)
	assert.Equal(t, 14, page5.Total)

	// page numbers below 1 behave as the first page
	page0 := Paginate(posts, 0)
	assert.Len(t, page0.Posts, PageSize)
	assert.Equal(t, 1, page0.CurrentPage)

	empty := Paginate(nil, 1)
	assert.Empty(t, empty.Posts)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.TotalPages)
}

func TestReadingTime(t *testing.T) {
	words := func(n int) string {
		content := ""
		for i := 0; i < n; i++ {
			content += "word "
		}
		return content
	}

	assert.Equal(t, "1 min read", ReadingTime(""))
	assert.Equal(t, "1 min read", ReadingTime("just a few words"))
	assert.Equal(t, "1 min read", ReadingTime(words(200)))
	assert.Equal(t, "2 min read", ReadingTime(words(201)))
	assert.Equal(t, "5 min read", ReadingTime(words(1000)))

	// markup does not count as words
	assert.Equal(t, "1 min read", ReadingTime("<p>short</p><img src=\"x\"/>"))
}

func TestRelatedPosts(t *testing.T) {
	now := time.Now()
	current := postAt("current", "current post", CategoryWebDevelopment, now, "go")

	t.Run("same category and shared tags win", func(t *testing.T) {
		posts := []Post{
			current,
			postAt("1", "same category", CategoryWebDevelopment, now.Add(-time.Hour)),
			postAt("2", "shared tag", CategoryAiMl, now.Add(-2*time.Hour), "go"),
			postAt("3", "unrelated", CategoryCaseStudy, now.Add(-time.Minute)),
			postAt("4", "same category newer", CategoryWebDevelopment, now.Add(-time.Minute)),
		}

		related := RelatedPosts(posts, &current)
		require.Len(t, related, 3)
		// newest matching first, the current post itself never shows up
		assert.Equal(t, "4", related[0].ID)
		assert.Equal(t, "1", related[1].ID)
		assert.Equal(t, "2", related[2].ID)
	})

	t.Run("padded with recent posts when matches are scarce", func(t *testing.T) {
		posts := []Post{
			current,
			postAt("1", "same category", CategoryWebDevelopment, now.Add(-time.Hour)),
			postAt("2", "unrelated newer", CategoryCaseStudy, now.Add(-time.Minute)),
			postAt("3", "unrelated older", CategoryDatabase, now.Add(-2*time.Hour)),
		}

		related := RelatedPosts(posts, &current)
		require.Len(t, related, 3)
		assert.Equal(t, "1", related[0].ID)
		assert.Equal(t, "2", related[1].ID)
		assert.Equal(t, "3", related[2].ID)
	})

	t.Run("fewer than three posts overall", func(t *testing.T) {
		posts := []Post{
			current,
			postAt("1", "the only other one", CategoryAiMl, now),
		}

		related := RelatedPosts(posts, &current)
		require.Len(t, related, 1)
		assert.Equal(t, "1", related[0].ID)
	})
}
