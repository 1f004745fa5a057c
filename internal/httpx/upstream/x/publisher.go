package x

import (
	"context"
	"fmt"
)

// Publisher publishes post content as tweets
type Publisher struct {
	client *Client
}

// NewPublisher creates a new X publisher
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishInput represents input for publishing content
type PublishInput struct {
	AccessToken string
	Content     string
	MediaURL    string
}

// PublishOutput represents output from publishing content
type PublishOutput struct {
	TweetID string
}

// Publish posts the content, appending the media link when present.
// Text over the limit fails with *TooLongError before any request is made.
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (*PublishOutput, error) {
	text, length := ComposeText(in.Content, in.MediaURL)
	if length > MaxTweetLength {
		return nil, &TooLongError{Length: length}
	}

	out, err := p.client.CreateTweet(ctx, CreateTweetInput{
		AccessToken: in.AccessToken,
		Text:        text,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tweet: %w", err)
	}

	return &PublishOutput{TweetID: out.ID}, nil
}
