package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackPoster is the subset of the Slack client the sink needs.
// *slack.Client satisfies it.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackSink posts transition summaries to a fixed channel.
type SlackSink struct {
	client  SlackPoster
	channel string
}

func NewSlackSink(client SlackPoster, channel string) *SlackSink {
	return &SlackSink{client: client, channel: channel}
}

func (*SlackSink) Name() string { return "slack" }

func (s *SlackSink) Deliver(ctx context.Context, rec Record) error {
	text := fmt.Sprintf("*%s* %s (delegation `%s`, by %s)",
		rec.EventType, rec.Summary, rec.DelegationID, rec.ActorName)

	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackSink.Deliver: %w", err)
	}
	return nil
}
