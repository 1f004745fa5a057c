package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL  = "https://api.linkedin.com"
	defaultTimeout  = 30 * time.Second
	restliProtocol  = "2.0.0"
	personURNPrefix = "urn:li:person:"
)

// Client is a LinkedIn UGC Posts API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client used as the transport base
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new LinkedIn API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the LinkedIn API
type APIError struct {
	StatusCode       int    `json:"status"`
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linkedin API error: %s (status: %d, code: %d)", e.Message, e.StatusCode, e.ServiceErrorCode)
}

// Retryable reports whether the request may succeed if repeated
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ShareMediaCategory is the kind of media attached to a share
type ShareMediaCategory string

const (
	ShareMediaNone    ShareMediaCategory = "NONE"
	ShareMediaArticle ShareMediaCategory = "ARTICLE"
)

type ugcPost struct {
	Author          string          `json:"author"`
	LifecycleState  string          `json:"lifecycleState"`
	SpecificContent specificContent `json:"specificContent"`
	Visibility      visibility      `json:"visibility"`
}

type specificContent struct {
	ShareContent shareContent `json:"com.linkedin.ugc.ShareContent"`
}

type shareContent struct {
	ShareCommentary    text               `json:"shareCommentary"`
	ShareMediaCategory ShareMediaCategory `json:"shareMediaCategory"`
	Media              []shareMedia       `json:"media,omitempty"`
}

type text struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type visibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

// CreatePostInput represents input for creating a share
type CreatePostInput struct {
	AccessToken string
	AuthorID    string // person ID or full person URN
	Text        string
	MediaURL    string // optional, shared as an article
}

// CreatePostOutput represents output from creating a share
type CreatePostOutput struct {
	ID string `json:"id"`
}

// CreatePost publishes a public share on behalf of the author
func (c *Client) CreatePost(ctx context.Context, in CreatePostInput) (*CreatePostOutput, error) {
	body, err := json.Marshal(newUGCPost(in))
	if err != nil {
		return nil, fmt.Errorf("encoding post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", restliProtocol)

	var out CreatePostOutput
	header, err := c.do(ctx, in.AccessToken, req, &out)
	if err != nil {
		return nil, err
	}

	// The share URN is returned in a header; older API versions put it in the body
	if id := header.Get("X-Restli-Id"); id != "" {
		out.ID = id
	}
	if out.ID == "" {
		return nil, fmt.Errorf("linkedin response carried no post id")
	}

	return &out, nil
}

func newUGCPost(in CreatePostInput) ugcPost {
	author := in.AuthorID
	if !strings.HasPrefix(author, "urn:li:") {
		author = personURNPrefix + author
	}

	content := shareContent{
		ShareCommentary:    text{Text: in.Text},
		ShareMediaCategory: ShareMediaNone,
	}
	if in.MediaURL != "" {
		content.ShareMediaCategory = ShareMediaArticle
		content.Media = []shareMedia{{Status: "READY", OriginalURL: in.MediaURL}}
	}

	return ugcPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: specificContent{ShareContent: content},
		Visibility:      visibility{MemberNetworkVisibility: "PUBLIC"},
	}
}

// do executes an authorized request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, accessToken string, req *http.Request, out interface{}) (http.Header, error) {
	resp, err := c.authorized(ctx, accessToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.Header, nil
}

// authorized returns an HTTP client that sends the bearer token on every request
func (c *Client) authorized(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.httpClient.Timeout
	return hc
}
