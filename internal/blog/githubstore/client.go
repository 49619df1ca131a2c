// Package githubstore mirrors the post index to a JSON file in a
// GitHub repo through the contents API. The file SHA works as an
// optimistic concurrency token: writing with a stale SHA gets
// rejected, so concurrent writers cannot silently overwrite each
// other.
package githubstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devpystudio/backend/internal/blog"
	"github.com/devpystudio/backend/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.github.com"

// ErrStaleIndex means the index file changed since it was last read,
// the caller holds an outdated SHA and has to re-read before writing.
var ErrStaleIndex = errors.New("index file changed upstream")

// Index is the JSON document stored in the mirror repo.
type Index struct {
	Posts       []blog.Post `json:"posts"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

var _ blog.IndexMirror = (*Client)(nil)

type Client struct {
	owner  string
	repo   string
	branch string
	path   string
	token  string

	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Manager
}

func NewClient(
	owner, repo, branch, path, token string,
	metricsManager *metrics.Manager,
) *Client {
	return &Client{
		owner:   owner,
		repo:    repo,
		branch:  branch,
		path:    path,
		token:   token,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		metrics: metricsManager,
	}
}

type contentsResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// GetIndex reads the current index file and its SHA. A missing file is
// not an error, it comes back as an empty index with an empty SHA.
func (c *Client) GetIndex(ctx context.Context) (Index, string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", c.baseURL, c.owner, c.repo, c.path, c.branch),
		nil,
	)
	if err != nil {
		return Index{}, "", err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Index{}, "", fmt.Errorf("get index file: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("get index file, close response body: %s", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return Index{Posts: []blog.Post{}}, "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return Index{}, "", unexpectedStatusErr(resp)
	}

	var contents contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return Index{}, "", fmt.Errorf("decode contents response: %w", err)
	}

	rawIndex, err := base64.StdEncoding.DecodeString(stripNewlines(contents.Content))
	if err != nil {
		return Index{}, "", fmt.Errorf("decode index content: %w", err)
	}

	var index Index
	if err := json.Unmarshal(rawIndex, &index); err != nil {
		return Index{}, "", fmt.Errorf("unmarshal index: %w", err)
	}

	return index, contents.SHA, nil
}

// PutIndex writes the index file. The sha has to be the SHA of the
// version being replaced, or empty when the file does not exist yet.
// A rejected write surfaces as ErrStaleIndex.
func (c *Client) PutIndex(ctx context.Context, index Index, sha string) (string, error) {
	rawIndex, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal index: %w", err)
	}

	putReq := putContentsRequest{
		Message: fmt.Sprintf("update posts index, %d posts", len(index.Posts)),
		Content: base64.StdEncoding.EncodeToString(rawIndex),
		Branch:  c.branch,
		SHA:     sha,
	}
	putReqJson, err := json.Marshal(putReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPut,
		fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, c.path),
		bytes.NewReader(putReqJson),
	)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("put index file: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("put index file, close response body: %s", err)
		}
	}()

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity {
		c.metrics.CounterIndexMirrorConflict.Inc()
		return "", ErrStaleIndex
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", unexpectedStatusErr(resp)
	}

	var putResp struct {
		Content contentsResponse `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&putResp); err != nil {
		return "", fmt.Errorf("decode put contents response: %w", err)
	}

	c.metrics.CounterIndexMirrorWrites.Inc()

	return putResp.Content.SHA, nil
}

// Publish pushes the full post list as the new index. On a stale SHA
// it re-reads once and retries, a second rejection is given up on and
// left to the next mutation.
func (c *Client) Publish(ctx context.Context, posts []blog.Post, lastUpdated time.Time) error {
	index := Index{
		Posts:       posts,
		LastUpdated: lastUpdated,
	}

	_, sha, err := c.GetIndex(ctx)
	if err != nil {
		return fmt.Errorf("read index before publish: %w", err)
	}

	if _, err = c.PutIndex(ctx, index, sha); !errors.Is(err, ErrStaleIndex) {
		return err
	}

	log.Warnf("publish index: stale sha, re-reading and retrying")

	_, sha, err = c.GetIndex(ctx)
	if err != nil {
		return fmt.Errorf("re-read index before publish: %w", err)
	}
	_, err = c.PutIndex(ctx, index, sha)
	return err
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
}

func unexpectedStatusErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
}

func stripNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
