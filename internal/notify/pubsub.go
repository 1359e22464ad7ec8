package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the subset of the redis pub/sub adapter the sink needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PubSubSink broadcasts transition records as JSON on a redis channel,
// the hand-off point for live dashboards and other read-side consumers.
type PubSubSink struct {
	pub     Publisher
	channel string
}

func NewPubSubSink(pub Publisher, channel string) *PubSubSink {
	return &PubSubSink{pub: pub, channel: channel}
}

func (*PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Deliver(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify.PubSubSink.Deliver: marshal: %w", err)
	}
	if err := s.pub.Publish(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("notify.PubSubSink.Deliver: %w", err)
	}
	return nil
}
