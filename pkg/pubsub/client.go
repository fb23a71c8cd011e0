// Package pubsub wraps the Pub/Sub v2 client with the topics and
// subscriptions a process depends on.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/gcp"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// Requirements lists resources that must exist before a process starts.
type Requirements struct {
	Topics        []string
	Subscriptions []string
}

// PublisherRequirements are the outbox topics.
func PublisherRequirements(cfg config.PubSubConfig) Requirements {
	return Requirements{Topics: []string{cfg.OrdersTopic, cfg.NotificationTopic, cfg.AnalyticsTopic}}
}

// AnalyticsRequirements is the analytics subscription.
func AnalyticsRequirements(cfg config.PubSubConfig) Requirements {
	return Requirements{Subscriptions: []string{cfg.AnalyticsSubscription}}
}

type resource struct {
	kind string
	name string
}

type adminLookup interface {
	lookup(ctx context.Context, r resource) error
}

type Client struct {
	client  *pubsub.Client
	project string
	needs   []resource
	admin   adminLookup
}

// NewClient connects and verifies every required resource exists.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, needs Requirements, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	conn, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{client: conn, project: project}
	c.admin = adminClient{conn}
	c.needs = c.resolve(needs)
	if len(c.needs) == 0 {
		_ = conn.Close()
		return nil, errors.New("pubsub: no topics or subscriptions configured")
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_resources", len(c.needs)), "pubsub client ready")
	}
	return c, nil
}

func (c *Client) resolve(needs Requirements) []resource {
	var out []resource
	for _, t := range needs.Topics {
		if name := gcp.ResourceName(c.project, "topics", t); name != "" {
			out = append(out, resource{kind: "topic", name: name})
		}
	}
	for _, s := range needs.Subscriptions {
		if name := gcp.ResourceName(c.project, "subscriptions", s); name != "" {
			out = append(out, resource{kind: "subscription", name: name})
		}
	}
	return out
}

// Ping looks up every required resource concurrently.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.admin == nil {
		return errors.New("pubsub: client not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range c.needs {
		g.Go(func() error { return c.admin.lookup(gctx, r) })
	}
	return g.Wait()
}

// Publisher returns a handle for a topic id or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	if name := gcp.ResourceName(c.project, "topics", topic); name != "" {
		return c.client.Publisher(name)
	}
	return nil
}

// Subscriber returns a handle for a subscription id or full resource name.
func (c *Client) Subscriber(subscription string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	if name := gcp.ResourceName(c.project, "subscriptions", subscription); name != "" {
		return c.client.Subscriber(name)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

type adminClient struct {
	conn *pubsub.Client
}

func (a adminClient) lookup(ctx context.Context, r resource) error {
	var err error
	switch r.kind {
	case "topic":
		_, err = a.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: r.name})
	default:
		_, err = a.conn.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: r.name})
	}
	return describeLookup(r, err)
}

func describeLookup(r resource, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub: %s %s does not exist", r.kind, r.name)
	default:
		return fmt.Errorf("pubsub: look up %s %s: %w", r.kind, r.name, err)
	}
}
