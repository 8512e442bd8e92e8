package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "wed-prod"}

	assert.Equal(t, "projects/wed-prod/topics/booking", c.resourceName(kindTopic, " booking "))
	assert.Equal(t, "projects/other/topics/booking", c.resourceName(kindTopic, "projects/other/topics/booking"))
	assert.Equal(t, "", c.resourceName(kindTopic, ""))

	assert.Equal(t, "projects/wed-prod/subscriptions/booking-sub", c.resourceName(kindSubscription, "booking-sub"))
	assert.Equal(t, "projects/x/subscriptions/s", c.resourceName(kindSubscription, "projects/x/subscriptions/s"))
	assert.Equal(t, "projects/wed-prod/subscriptions/projects/x/topics/t", c.resourceName(kindSubscription, "projects/x/topics/t"),
		"a topic path is not a subscription path")
	assert.Nil(t, (&Client{projectID: "wed-prod"}).Publisher("booking"), "no connection means no publisher")

	var nilClient *Client
	assert.Equal(t, "", nilClient.resourceName(kindTopic, "booking"))
	assert.Nil(t, nilClient.Publisher("booking"))
	assert.Nil(t, nilClient.BookingSubscription())
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	assert.Equal(t, []string{"booking"}, topicNames(config.PubSubConfig{BookingTopic: "booking", GuestCountTopic: "  "}))
	assert.Equal(t, []string{"booking", "guest-count"}, topicNames(config.PubSubConfig{BookingTopic: "booking", GuestCountTopic: "guest-count"}))
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{BookingTopic: "b", GuestCountTopic: "g"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "wed"}, config.PubSubConfig{BookingTopic: "b"}, nil)
	require.ErrorIs(t, err, errNoTopics)
}

func TestPingUninitialized(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, c.Close())
}
