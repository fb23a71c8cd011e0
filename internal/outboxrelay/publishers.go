package outboxrelay

import (
	"context"
	"strings"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type topicClient interface {
	Publisher(name string) *gcppubsub.Publisher
}

// TopicPublishers caches one Pub/Sub publisher per topic.
type TopicPublishers struct {
	client topicClient
	mu     sync.Mutex
	byName map[string]*gcppubsub.Publisher
}

// NewTopicPublishers wraps the pubsub client.
func NewTopicPublishers(client topicClient) *TopicPublishers {
	return &TopicPublishers{client: client, byName: map[string]*gcppubsub.Publisher{}}
}

// Publisher returns the cached publisher for topic.
func (t *TopicPublishers) Publisher(topic string) Publisher {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	pub, ok := t.byName[topic]
	if !ok {
		pub = t.client.Publisher(topic)
		if pub == nil {
			return nil
		}
		t.byName[topic] = pub
	}
	return gcpPublisher{pub}
}

// Stop flushes and stops every publisher handed out.
func (t *TopicPublishers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, pub := range t.byName {
		pub.Stop()
		delete(t.byName, name)
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return g.pub.Publish(ctx, msg).Get(ctx)
}
