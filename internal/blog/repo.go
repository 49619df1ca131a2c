package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/devpystudio/backend/internal/telemetry/tracing"
	"github.com/devpystudio/backend/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// manual caching of posts not needed (at least for this use case):
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) List(ctx context.Context) ([]Post, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.List")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, title, excerpt, content, category, author_name, tags,
				image, status, publish_date, last_modified, views, read_time
			FROM post
			ORDER BY publish_date DESC, id DESC;
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) Get(ctx context.Context, id string) (*Post, error) {
	log.Tracef("getting post %s", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, title, excerpt, content, category, author_name, tags,
				image, status, publish_date, last_modified, views, read_time
			FROM post
			WHERE id = $1;
		`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrPostNotFound
	}

	post, err := scanPost(rows)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *Repo) Insert(ctx context.Context, post *Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Insert")
	defer span.End()

	_, err := r.db.Exec(
		ctx,
		`
			INSERT INTO post (
				id, title, excerpt, content, category, author_name, tags,
				image, status, publish_date, last_modified, views, read_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
		`,
		post.ID, post.Title, post.Excerpt, post.Content, post.Category,
		post.Author.Name, post.Tags, post.Image, post.Status,
		post.PublishDate, post.LastModified, post.Views, post.ReadTime,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return fmt.Errorf("%w: id %s taken", ErrPostInvalid, post.ID)
		}
		return err
	}

	return nil
}

// Update replaces the whole record, the views counter included.
// Callers are expected to have read the current record first.
func (r *Repo) Update(ctx context.Context, post *Post) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.Update")
	span.SetAttributes(attribute.String("id", post.ID))
	defer span.End()

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE post SET
				title = $1, excerpt = $2, content = $3, category = $4,
				author_name = $5, tags = $6, image = $7, status = $8,
				publish_date = $9, last_modified = $10, views = $11, read_time = $12
			WHERE id = $13;
		`,
		post.Title, post.Excerpt, post.Content, post.Category,
		post.Author.Name, post.Tags, post.Image, post.Status,
		post.PublishDate, post.LastModified, post.Views, post.ReadTime,
		post.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM post WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) DeleteAll(ctx context.Context) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM post`)
	if err != nil {
		return err
	}
	log.Tracef("cleared all posts, %d deleted", tag.RowsAffected())
	return nil
}

func (r *Repo) IncrementViews(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE post SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *Repo) PostsCount(ctx context.Context) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postsRepo.PostsCount")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM post`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get posts count")
}

func (r *Repo) rows2posts(rows pgx.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func scanPost(rows pgx.Rows) (*Post, error) {
	var post Post
	var authorName string
	if err := rows.Scan(
		&post.ID, &post.Title, &post.Excerpt, &post.Content, &post.Category,
		&authorName, &post.Tags, &post.Image, &post.Status,
		&post.PublishDate, &post.LastModified, &post.Views, &post.ReadTime,
	); err != nil {
		return nil, err
	}
	post.Author = Author{Name: authorName}
	return &post, nil
}
