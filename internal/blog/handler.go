package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/devpystudio/backend/internal/telemetry/metrics"
	"github.com/devpystudio/backend/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// ViewerSessionCookie identifies a reader browser session, so revisits
// of the same post within the session do not inflate the view counter.
const ViewerSessionCookie = "devpy_viewer_session"

// uploads over this size are rejected outright
const maxImageUploadBytes = 5 << 20

type listPostsResponse struct {
	Success     bool   `json:"success"`
	Posts       []Post `json:"posts"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

type postResponse struct {
	Success bool  `json:"success"`
	Post    *Post `json:"post"`
}

type relatedPostsResponse struct {
	Success bool   `json:"success"`
	Posts   []Post `json:"posts"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type imagesStore interface {
	Save(file multipart.File, header *multipart.FileHeader) (string, error)
	Path(filename string) (string, error)
}

type Handler struct {
	service     *Service
	viewTracker *ViewTracker
	images      imagesStore
	metrics     *metrics.Manager
}

func NewHandler(
	service *Service,
	viewTracker *ViewTracker,
	images imagesStore,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service:     service,
		viewTracker: viewTracker,
		images:      images,
		metrics:     metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/posts", handler.handleListPosts).Methods("GET").Name("posts")
	router.HandleFunc("/api/posts/{id}", handler.handleGetPost).Methods("GET").Name("post")
	router.HandleFunc("/api/posts/{id}/related", handler.handleRelatedPosts).Methods("GET").Name("related-posts")

	router.HandleFunc("/api/admin/posts", handler.handleAdminListPosts).Methods("GET").Name("admin-posts")
	router.HandleFunc("/api/admin/posts", handler.handleNewPost).Methods("POST", "OPTIONS").Name("new-post")
	router.HandleFunc("/api/admin/posts/{id}", handler.handleUpdatePost).Methods("PUT", "OPTIONS").Name("update-post")
	router.HandleFunc("/api/admin/posts/{id}", handler.handleDeletePost).Methods("DELETE", "OPTIONS").Name("delete-post")
	router.HandleFunc("/api/admin/posts", handler.handleDeleteAllPosts).Methods("DELETE", "OPTIONS").Name("delete-all-posts")

	router.HandleFunc("/api/images/{filename}", handler.handleGetImage).Methods("GET").Name("post-image")
}

// handleListPosts serves the public post list: published posts only,
// filtered, newest first, paginated. Storage errors come back as an
// empty first page, the site stays up even when the backing store is
// temporarily gone.
func (handler *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search := r.URL.Query().Get("search")
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsedPage, err := strconv.Atoi(pageStr)
		if err != nil || parsedPage < 1 {
			http.Error(w, "invalid page (has to be a positive number)", http.StatusBadRequest)
			return
		}
		page = parsedPage
	}

	posts, err := handler.service.List(r.Context())
	if err != nil {
		log.Errorf("list posts: %s", err)
		posts = nil
	}

	postsPage := Paginate(FilterPosts(Published(posts), category, search), page)

	writeJSON(w, http.StatusOK, listPostsResponse{
		Success:     true,
		Posts:       postsPage.Posts,
		Total:       postsPage.Total,
		TotalPages:  postsPage.TotalPages,
		CurrentPage: postsPage.CurrentPage,
	})
}

func (handler *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	post, err := handler.service.Get(r.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: "post not found"})
			return
		}
		log.Errorf("get post %s: %s", vars["id"], err)
		http.Error(w, "failed to get post", http.StatusInternalServerError)
		return
	}

	if handler.countView(w, r, post.ID) {
		post.Views++
		handler.metrics.CounterPostViews.Inc()
	}

	writeJSON(w, http.StatusOK, postResponse{Success: true, Post: post})
}

// countView reports whether this request is the first view of the post
// within the viewer session. A missing session cookie starts a new
// session. View bookkeeping failures are logged and swallowed, a
// hiccup there must not break reading the post.
func (handler *Handler) countView(w http.ResponseWriter, r *http.Request, postID string) bool {
	sessionID := ""
	if cookie, err := r.Cookie(ViewerSessionCookie); err == nil {
		sessionID = cookie.Value
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     ViewerSessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	firstView, err := handler.viewTracker.FirstViewInSession(r.Context(), sessionID, postID)
	if err != nil {
		log.Errorf("track view for post %s: %s", postID, err)
		return false
	}
	if !firstView {
		return false
	}

	if err := handler.service.IncrementView(r.Context(), postID); err != nil {
		log.Errorf("increment views for post %s: %s", postID, err)
		return false
	}
	return true
}

func (handler *Handler) handleRelatedPosts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	post, err := handler.service.Get(r.Context(), vars["id"])
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: "post not found"})
			return
		}
		log.Errorf("get post %s: %s", vars["id"], err)
		http.Error(w, "failed to get post", http.StatusInternalServerError)
		return
	}

	posts, err := handler.service.List(r.Context())
	if err != nil {
		log.Errorf("related posts, list: %s", err)
		posts = nil
	}

	writeJSON(w, http.StatusOK, relatedPostsResponse{
		Success: true,
		Posts:   RelatedPosts(Published(posts), post),
	})
}

// handleAdminListPosts serves the whole list, drafts included, without
// pagination, for the admin dashboard.
func (handler *Handler) handleAdminListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.service.List(r.Context())
	if err != nil {
		log.Errorf("admin list posts: %s", err)
		http.Error(w, "failed to list posts", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []Post{}
	}

	writeJSON(w, http.StatusOK, listPostsResponse{
		Success:     true,
		Posts:       posts,
		Total:       len(posts),
		TotalPages:  1,
		CurrentPage: 1,
	})
}

func (handler *Handler) handleNewPost(w http.ResponseWriter, r *http.Request) {
	draft, ok := handler.readDraft(w, r)
	if !ok {
		return
	}

	post, err := handler.service.Create(r.Context(), draft)
	if err != nil {
		if errors.Is(err, ErrPostInvalid) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
			return
		}
		log.Errorf("add new post failed: %s", err)
		http.Error(w, "add new post failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new post %s: [%s] added", post.ID, post.Title)
	handler.metrics.CounterPostsCreated.Inc()

	writeJSON(w, http.StatusOK, postResponse{Success: true, Post: post})
}

// readDraft reads a new post from the request, either as plain JSON or
// as a multipart form carrying an optional cover image upload.
func (handler *Handler) readDraft(w http.ResponseWriter, r *http.Request) (Draft, bool) {
	var draft Draft

	contentType := r.Header.Get("Content-Type")
	if contentType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			log.Errorf("new post, unmarshal json params: %s", err)
			http.Error(w, "add post failed", http.StatusBadRequest)
			return Draft{}, false
		}
		return draft, true
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		log.Errorf("new post, parse multipart form: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return Draft{}, false
	}

	draft = Draft{
		Title:    r.FormValue("title"),
		Excerpt:  r.FormValue("excerpt"),
		Content:  r.FormValue("content"),
		Category: r.FormValue("category"),
		Author:   Author{Name: r.FormValue("author")},
		Tags:     ParseTags(r.FormValue("tags")),
		Status:   r.FormValue("status"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// no upload, the placeholder image kicks in
	case err != nil:
		log.Errorf("new post, read image: %s", err)
		http.Error(w, "read image error", http.StatusBadRequest)
		return Draft{}, false
	default:
		defer func() {
			if err := file.Close(); err != nil {
				log.Errorf("close uploaded image: %s", err)
			}
		}()
		filename, err := handler.images.Save(file, header)
		if err != nil {
			log.Errorf("new post, save image: %s", err)
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid image upload"})
			return Draft{}, false
		}
		draft.Image = fmt.Sprintf("./images/posts/%s", filename)
	}

	return draft, true
}

// readPatch reads a post patch from the request, either as plain JSON
// or as a multipart form carrying an optional replacement cover image.
// Form fields left out of the multipart request stay nil, so the
// current image survives an update without an upload.
func (handler *Handler) readPatch(w http.ResponseWriter, r *http.Request) (Patch, bool) {
	var patch Patch

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			log.Errorf("update post, unmarshal json params: %s", err)
			http.Error(w, "update post failed", http.StatusBadRequest)
			return Patch{}, false
		}
		return patch, true
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		log.Errorf("update post, parse multipart form: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return Patch{}, false
	}

	formValue := func(key string) *string {
		values, ok := r.MultipartForm.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}
		return &values[0]
	}

	patch.Title = formValue("title")
	patch.Excerpt = formValue("excerpt")
	patch.Content = formValue("content")
	patch.Category = formValue("category")
	patch.Status = formValue("status")
	patch.ReadTime = formValue("readTime")
	if author := formValue("author"); author != nil {
		patch.Author = &Author{Name: *author}
	}
	if tags := formValue("tags"); tags != nil {
		parsed := ParseTags(*tags)
		patch.Tags = &parsed
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// no upload, the current cover image stays
	case err != nil:
		log.Errorf("update post, read image: %s", err)
		http.Error(w, "read image error", http.StatusBadRequest)
		return Patch{}, false
	default:
		defer func() {
			if err := file.Close(); err != nil {
				log.Errorf("close uploaded image: %s", err)
			}
		}()
		filename, err := handler.images.Save(file, header)
		if err != nil {
			log.Errorf("update post, save image: %s", err)
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid image upload"})
			return Patch{}, false
		}
		imagePath := fmt.Sprintf("./images/posts/%s", filename)
		patch.Image = &imagePath
	}

	return patch, true
}

func (handler *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	patch, ok := handler.readPatch(w, r)
	if !ok {
		return
	}

	post, err := handler.service.Update(r.Context(), vars["id"], patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrPostNotFound):
			writeJSON(w, http.StatusNotFound, messageResponse{Message: "post not found"})
		case errors.Is(err, ErrPostInvalid):
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		default:
			log.Errorf("update post %s: %s", vars["id"], err)
			http.Error(w, "update post failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, postResponse{Success: true, Post: post})
}

func (handler *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := handler.service.Delete(r.Context(), vars["id"]); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: "post not found"})
			return
		}
		log.Errorf("delete post %s: %s", vars["id"], err)
		http.Error(w, "error, post not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "post deleted"})
}

func (handler *Handler) handleDeleteAllPosts(w http.ResponseWriter, r *http.Request) {
	if err := handler.service.DeleteAll(r.Context()); err != nil {
		log.Errorf("delete all posts: %s", err)
		http.Error(w, "error, posts not deleted, internal server error", http.StatusInternalServerError)
		return
	}

	log.Warnln("all posts deleted")

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "all posts deleted"})
}

func (handler *Handler) handleGetImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	path, err := handler.images.Path(vars["filename"])
	if err != nil {
		log.Tracef("get image %s: %s", vars["filename"], err)
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, status)
}
