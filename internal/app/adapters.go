package app

import (
	"context"

	"github.com/vadim/postpilot/internal/domain/post/policy"
	"github.com/vadim/postpilot/internal/httpx/upstream/linkedin"
	"github.com/vadim/postpilot/internal/httpx/upstream/x"
)

// linkedinPublisherAdapter adapts linkedin.Publisher to policy.Publisher
type linkedinPublisherAdapter struct {
	publisher *linkedin.Publisher
}

func (a *linkedinPublisherAdapter) Publish(ctx context.Context, in policy.PublishInput) (*policy.PublishOutput, error) {
	out, err := a.publisher.Publish(ctx, linkedin.PublishInput{
		AccountID:   in.AccountID,
		AccessToken: in.AccessToken,
		Content:     in.Content,
		MediaURL:    in.MediaURL,
	})
	if err != nil {
		return nil, err
	}
	return &policy.PublishOutput{ExternalPostID: out.ShareURN}, nil
}

// xPublisherAdapter adapts x.Publisher to policy.Publisher
type xPublisherAdapter struct {
	publisher *x.Publisher
}

func (a *xPublisherAdapter) Publish(ctx context.Context, in policy.PublishInput) (*policy.PublishOutput, error) {
	out, err := a.publisher.Publish(ctx, x.PublishInput{
		AccessToken: in.AccessToken,
		Content:     in.Content,
		MediaURL:    in.MediaURL,
	})
	if err != nil {
		return nil, err
	}
	return &policy.PublishOutput{ExternalPostID: out.TweetID}, nil
}
