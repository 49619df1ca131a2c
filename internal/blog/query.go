package blog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	// PageSize matches what the site frontend renders per page.
	PageSize = 6

	wordsPerMinute    = 200
	relatedPostsMax   = 3
	CategoryFilterAll = "all"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// PostsPage is a single page of the filtered post list.
type PostsPage struct {
	Posts       []Post `json:"posts"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

// Published keeps only the posts visible to readers.
func Published(posts []Post) []Post {
	published := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.Status == StatusPublished {
			published = append(published, p)
		}
	}
	return published
}

// FilterPosts narrows the list down by category and search term,
// preserving the incoming order. Category "all" (or empty) matches
// everything, the search is a case-insensitive substring match over
// title, excerpt and tags.
func FilterPosts(posts []Post, category, search string) []Post {
	filtered := make([]Post, 0, len(posts))
	search = strings.ToLower(strings.TrimSpace(search))
	for _, p := range posts {
		if category != "" && category != CategoryFilterAll && p.Category != category {
			continue
		}
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func matchesSearch(p Post, search string) bool {
	if strings.Contains(strings.ToLower(p.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Excerpt), search) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

// SortNewestFirst orders by publish date, newest first. Posts that
// share a publish date fall back to descending id, so the order is
// stable across calls.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].PublishDate.Equal(posts[j].PublishDate) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].PublishDate.After(posts[j].PublishDate)
	})
}

// Paginate cuts the list into a single page. Page numbers start at 1
// and out of range pages come back empty, never as an error.
func Paginate(posts []Post, page int) PostsPage {
	if page < 1 {
		page = 1
	}

	total := len(posts)
	totalPages := int(math.Ceil(float64(total) / float64(PageSize)))

	start := (page - 1) * PageSize
	if start > total {
		start = total
	}
	end := start + PageSize
	if end > total {
		end = total
	}

	return PostsPage{
		Posts:       posts[start:end],
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
	}
}

// ReadingTime estimates how long a post takes to read, at 200 words
// per minute over the plain text content, markup stripped.
func ReadingTime(content string) string {
	plain := htmlTagRegex.ReplaceAllString(content, " ")
	words := len(strings.Fields(plain))
	minutes := int(math.Ceil(float64(words) / float64(wordsPerMinute)))
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 min read"
	}
	return fmt.Sprintf("%d min read", minutes)
}

// RelatedPosts picks up to three posts sharing the category or a tag
// with the given post, newest first. When fewer than three match, the
// most recent remaining posts pad the list.
func RelatedPosts(posts []Post, post *Post) []Post {
	candidates := make([]Post, 0, len(posts))
	rest := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.ID == post.ID {
			continue
		}
		if p.Category == post.Category || sharesTag(p.Tags, post.Tags) {
			candidates = append(candidates, p)
		} else {
			rest = append(rest, p)
		}
	}

	SortNewestFirst(candidates)
	if len(candidates) < relatedPostsMax {
		SortNewestFirst(rest)
		candidates = append(candidates, rest...)
	}

	if len(candidates) > relatedPostsMax {
		candidates = candidates[:relatedPostsMax]
	}
	return candidates
}

func sharesTag(a, b []string) bool {
	for _, ta := range a {
		for _, tb := range b {
			if strings.EqualFold(ta, tb) {
				return true
			}
		}
	}
	return false
}
