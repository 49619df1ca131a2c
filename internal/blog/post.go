package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostInvalid  = errors.New("post invalid")
)

const (
	StatusPublished = "published"
	StatusDraft     = "draft"

	// PlaceholderImagePath is used when a post is created without an image
	PlaceholderImagePath = "./images/posts/placeholder.jpg"
)

// well-known post categories; free text is allowed too
const (
	CategoryWebDevelopment = "web-development"
	CategoryAiMl           = "ai-ml"
	CategoryCloudDevops    = "cloud-devops"
	CategoryDatabase       = "database"
	CategoryCaseStudy      = "case-study"
)

// Author is the canonical author shape. Some legacy clients send the
// author as a plain string, so unmarshalling accepts both.
type Author struct {
	Name string `json:"name"`
}

func (a *Author) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		return nil
	}

	type authorAlias Author
	var alias authorAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	a.Name = alias.Name
	return nil
}

type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Author       Author    `json:"author"`
	Tags         []string  `json:"tags"`
	Image        string    `json:"image"`
	Status       string    `json:"status"`
	PublishDate  time.Time `json:"publishDate"`
	LastModified time.Time `json:"lastModified"`
	Views        int       `json:"views"`
	ReadTime     string    `json:"readTime,omitempty"`
}

func (p *Post) Validate() error {
	return Draft{
		Title:    p.Title,
		Excerpt:  p.Excerpt,
		Content:  p.Content,
		Category: p.Category,
		Author:   p.Author,
		Status:   p.Status,
	}.Validate()
}

// Draft holds the operator-provided fields of a new post
type Draft struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Author   Author   `json:"author"`
	Tags     []string `json:"tags"`
	Image    string   `json:"image"`
	Status   string   `json:"status"`
	ReadTime string   `json:"readTime"`
}

func (d Draft) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("%w: title empty", ErrPostInvalid)
	case strings.TrimSpace(d.Category) == "":
		return fmt.Errorf("%w: category empty", ErrPostInvalid)
	case strings.TrimSpace(d.Author.Name) == "":
		return fmt.Errorf("%w: author empty", ErrPostInvalid)
	case strings.TrimSpace(d.Excerpt) == "":
		return fmt.Errorf("%w: excerpt empty", ErrPostInvalid)
	case strings.TrimSpace(d.Content) == "":
		return fmt.Errorf("%w: content empty", ErrPostInvalid)
	case d.Status != "" && d.Status != StatusPublished && d.Status != StatusDraft:
		// a typo here would silently hide the post from the public list
		return fmt.Errorf("%w: unknown status %q", ErrPostInvalid, d.Status)
	}
	return nil
}

// Patch carries the updatable fields of a post. Nil fields are left
// untouched. ID, publish date and the views counter are never patched,
// lastModified is always refreshed on update.
type Patch struct {
	Title    *string   `json:"title"`
	Excerpt  *string   `json:"excerpt"`
	Content  *string   `json:"content"`
	Category *string   `json:"category"`
	Author   *Author   `json:"author"`
	Tags     *[]string `json:"tags"`
	Image    *string   `json:"image"`
	Status   *string   `json:"status"`
	ReadTime *string   `json:"readTime"`
}

// ParseTags splits a comma separated tags string the way the admin
// form submits them, dropping empty entries
func ParseTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return []string{}
	}

	var parsed []string
	for _, tag := range strings.Split(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		parsed = append(parsed, tag)
	}
	return parsed
}
