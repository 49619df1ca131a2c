package blog

import (
	"context"
	"sort"
	"sync"
)

// storeMock is an in-memory Store used by unit tests.
type storeMock struct {
	mutex sync.Mutex
	posts map[string]*Post
}

func newStoreMock() *storeMock {
	return &storeMock{
		posts: make(map[string]*Post),
	}
}

func (m *storeMock) List(_ context.Context) ([]Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	posts := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].PublishDate.Equal(posts[j].PublishDate) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].PublishDate.After(posts[j].PublishDate)
	})
	return posts, nil
}

func (m *storeMock) Get(_ context.Context, id string) (*Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	postCopy := *post
	return &postCopy, nil
}

func (m *storeMock) Insert(_ context.Context, post *Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	postCopy := *post
	m.posts[post.ID] = &postCopy
	return nil
}

func (m *storeMock) Update(_ context.Context, post *Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.posts[post.ID]; !ok {
		return ErrPostNotFound
	}
	postCopy := *post
	m.posts[post.ID] = &postCopy
	return nil
}

func (m *storeMock) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *storeMock) DeleteAll(_ context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.posts = make(map[string]*Post)
	return nil
}

func (m *storeMock) IncrementViews(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	post.Views++
	return nil
}
