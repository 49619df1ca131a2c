package blog

import (
	"context"
	"errors"
	"time"

	"github.com/devpystudio/backend/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// IndexMirror receives the full post list after every successful
// mutation, so an external copy of the index can be kept in sync.
type IndexMirror interface {
	Publish(ctx context.Context, posts []Post, lastUpdated time.Time) error
}

type Service struct {
	store  Store
	mirror IndexMirror // optional

	now   func() time.Time
	newID func() string
}

func NewService(store Store, mirror IndexMirror) *Service {
	return &Service{
		store:  store,
		mirror: mirror,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.store.Get(ctx, id)
}

// Create validates the draft, fills in the generated fields and stores
// the new post. The returned post is the stored record.
func (s *Service) Create(ctx context.Context, draft Draft) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsService.Create")
	defer span.End()

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	post := &Post{
		ID:           s.newID(),
		Title:        draft.Title,
		Excerpt:      draft.Excerpt,
		Content:      draft.Content,
		Category:     draft.Category,
		Author:       draft.Author,
		Tags:         draft.Tags,
		Image:        draft.Image,
		Status:       draft.Status,
		PublishDate:  now,
		LastModified: now,
		Views:        0,
	}
	if post.Status == "" {
		post.Status = StatusPublished
	}
	if post.Image == "" {
		post.Image = PlaceholderImagePath
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.ReadTime = draft.ReadTime
	if post.ReadTime == "" {
		post.ReadTime = ReadingTime(post.Content)
	}

	if err := s.store.Insert(ctx, post); err != nil {
		return nil, err
	}

	s.publishIndex(ctx)

	return post, nil
}

// Update applies the patch on top of the stored post. The id, publish
// date and views counter are never touched, regardless of the patch.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsService.Update")
	defer span.End()

	post, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		post.Title = *patch.Title
	}
	if patch.Excerpt != nil {
		post.Excerpt = *patch.Excerpt
	}
	if patch.Content != nil {
		post.Content = *patch.Content
		post.ReadTime = ReadingTime(post.Content)
	}
	if patch.Category != nil {
		post.Category = *patch.Category
	}
	if patch.Author != nil {
		post.Author = *patch.Author
	}
	if patch.Tags != nil {
		post.Tags = *patch.Tags
	}
	if patch.Image != nil {
		post.Image = *patch.Image
	}
	if patch.Status != nil {
		post.Status = *patch.Status
	}
	if patch.ReadTime != nil {
		post.ReadTime = *patch.ReadTime
	}
	post.LastModified = s.now()

	if err := post.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, post); err != nil {
		return nil, err
	}

	s.publishIndex(ctx)

	return post, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publishIndex(ctx)
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return err
	}
	s.publishIndex(ctx)
	return nil
}

// IncrementView bumps the views counter. A missing post is not an
// error here, the reader might be looking at a just deleted post.
func (s *Service) IncrementView(ctx context.Context, id string) error {
	err := s.store.IncrementViews(ctx, id)
	if errors.Is(err, ErrPostNotFound) {
		return nil
	}
	return err
}

func (s *Service) publishIndex(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	posts, err := s.store.List(ctx)
	if err != nil {
		log.Errorf("publish index, list posts: %s", err)
		return
	}
	if err := s.mirror.Publish(ctx, posts, s.now()); err != nil {
		log.Errorf("publish index: %s", err)
	}
}
