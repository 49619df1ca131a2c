package blog

import "context"

var _ Store = (*Repo)(nil)
var _ Store = (*storeMock)(nil)

// Store persists the posts collection. List comes back newest-first by
// publish date, with descending id as the tie-break for posts sharing
// a publish date.
type Store interface {
	List(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, id string) (*Post, error)
	Insert(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	IncrementViews(ctx context.Context, id string) error
}
