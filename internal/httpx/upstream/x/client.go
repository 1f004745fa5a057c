package x

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultBaseURL = "https://api.twitter.com"
	defaultTimeout = 30 * time.Second

	// MaxTweetLength is the post limit in normalized characters
	MaxTweetLength = 280

	// linkLength is the weight of any URL once wrapped by the link shortener
	linkLength = 23
)

// Client is an X API v2 client
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

// New creates a new X API client
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

// APIError represents an error from the X API
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Type       string `json:"type"`
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	return fmt.Sprintf("x API error: %s (status: %d)", msg, e.StatusCode)
}

// Retryable reports whether the request may succeed if repeated
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// TooLongError is returned when text exceeds MaxTweetLength
type TooLongError struct {
	Length int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("tweet is %d characters, limit is %d", e.Length, MaxTweetLength)
}

// Retryable is always false; the content must be edited
func (e *TooLongError) Retryable() bool {
	return false
}

// CreateTweetInput represents input for creating a tweet
type CreateTweetInput struct {
	AccessToken string
	Text        string
}

// CreateTweetOutput represents output from creating a tweet
type CreateTweetOutput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type createTweetRequest struct {
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data CreateTweetOutput `json:"data"`
}

// CreateTweet posts a tweet on behalf of the token owner
func (c *Client) CreateTweet(ctx context.Context, in CreateTweetInput) (*CreateTweetOutput, error) {
	body, err := json.Marshal(createTweetRequest{Text: in.Text})
	if err != nil {
		return nil, fmt.Errorf("encoding tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp createTweetResponse
	if err := c.do(ctx, in.AccessToken, req, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, fmt.Errorf("x response carried no tweet id")
	}

	return &resp.Data, nil
}

// ComposeText joins content and an optional media link into NFC-normalized tweet text
// and returns its weighted length
func ComposeText(content, mediaURL string) (string, int) {
	text := norm.NFC.String(content)
	length := utf8.RuneCountInString(text)

	if mediaURL != "" {
		text += "\n\n" + mediaURL
		length += 2 + linkLength
	}

	return text, length
}

// do executes an authorized request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, accessToken string, req *http.Request, out interface{}) error {
	resp, err := c.authorized(ctx, accessToken).Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Detail == "" && apiErr.Title == "") {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
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
