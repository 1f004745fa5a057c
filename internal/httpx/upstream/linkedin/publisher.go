package linkedin

import (
	"context"
	"fmt"
)

// Publisher publishes post content as LinkedIn shares
type Publisher struct {
	client *Client
}

// NewPublisher creates a new LinkedIn publisher
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishInput represents input for publishing content
type PublishInput struct {
	AccountID   string
	AccessToken string
	Content     string
	MediaURL    string
}

// PublishOutput represents output from publishing content
type PublishOutput struct {
	ShareURN string
}

// Publish creates a public share for the connected member
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (*PublishOutput, error) {
	out, err := p.client.CreatePost(ctx, CreatePostInput{
		AccessToken: in.AccessToken,
		AuthorID:    in.AccountID,
		Text:        in.Content,
		MediaURL:    in.MediaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating linkedin share: %w", err)
	}

	return &PublishOutput{ShareURN: out.ID}, nil
}
