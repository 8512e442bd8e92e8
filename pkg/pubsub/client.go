// Package pubsub connects to the booking and guest count topics and the
// booking subscription the worker drains.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub booking and guest count topics are required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and refuses to start unless every configured topic, and
// the booking subscription when one is set, already exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if len(topicNames(cfg)) < 2 {
		return nil, errNoTopics
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	raw, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: raw, projectID: projectID, cfg: cfg}
	if err := c.verify(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": projectID,
			"topics":     topicNames(cfg),
		}), "pubsub client initialized")
	}
	return c, nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.BookingTopic, cfg.GuestCountTopic} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

func (c *Client) verify(ctx context.Context) error {
	for _, name := range topicNames(c.cfg) {
		if err := c.exists(ctx, kindTopic, name); err != nil {
			return err
		}
	}
	if sub := strings.TrimSpace(c.cfg.BookingSubscription); sub != "" {
		return c.exists(ctx, kindSubscription, sub)
	}
	return nil
}

func (c *Client) exists(ctx context.Context, kind, name string) error {
	full := c.resourceName(kind, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", kind, name)
	}
	var err error
	if kind == kindTopic {
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	} else {
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("checking %s: %w", full, err)
	}
}

// resourceName expands a short ID into projects/<id>/<kind>/<name>. Names
// that are already fully qualified pass through.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}

// Subscription returns a subscriber for name, or nil when it cannot be resolved.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resourceName(kindSubscription, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

// BookingSubscription is nil when WEDDONE_PUBSUB_BOOKING_SUBSCRIPTION is unset.
func (c *Client) BookingSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.BookingSubscription)
}

// Publisher returns a publisher for topic, or nil when it cannot be resolved.
// Callers own the handle and must Stop it.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	full := c.resourceName(kindTopic, topic)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-checks that the configured topics and subscription still exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
