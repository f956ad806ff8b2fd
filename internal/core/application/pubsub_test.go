package application_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pali-wallet/palid/internal/core/application"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPubSubListeners(t *testing.T) {
	svc := application.NewPubSubService(nil)
	first, second := &eventRecorder{}, &eventRecorder{}
	svc.AddListener(first)
	svc.AddListener(second)

	var received []application.EventType
	svc.AddListener(application.EventListenerFunc(func(e application.Event) {
		received = append(received, e.Type)
	}))

	svc.Publish(application.Event{Type: application.EventWalletLocked})
	svc.Publish(application.Event{Type: application.EventNetworkChanged, Network: "main"})

	require.Len(t, first.byType(application.EventWalletLocked), 1)
	require.Len(t, second.byType(application.EventNetworkChanged), 1)
	require.Equal(t, []application.EventType{
		application.EventWalletLocked, application.EventNetworkChanged,
	}, received)
}

func TestWebhooksNotInitialized(t *testing.T) {
	svc := application.NewPubSubService(nil)

	_, err := svc.AddWebhook("http://localhost:8080", "*", "")
	require.ErrorIs(t, err, application.ErrWebhookManagerNotInitialized)

	err = svc.RemoveWebhook("*", "id")
	require.ErrorIs(t, err, application.ErrWebhookManagerNotInitialized)

	_, err = svc.ListWebhooks("")
	require.ErrorIs(t, err, application.ErrWebhookManagerNotInitialized)
}

func TestWebhooks(t *testing.T) {
	pubsub := &mockPubSub{}
	svc := application.NewPubSubService(pubsub)

	_, err := svc.AddWebhook("http://localhost:8080", "UNKNOWN", "")
	require.ErrorIs(t, err, application.ErrUnknownTopic)

	_, err = svc.AddWebhook("not an url", "TX_UPDATED", "")
	require.ErrorIs(t, err, application.ErrInvalidWebhookEndpoint)

	pubsub.On("Subscribe", "TX_UPDATED", "http://localhost:8080/hook", "secret").
		Return("hook1", nil)
	id, err := svc.AddWebhook("http://localhost:8080/hook", "TX_UPDATED", "secret")
	require.NoError(t, err)
	require.Equal(t, "hook1", id)

	pubsub.On("ListSubscriptionsForTopic", ports.AnyTopic).Return([]ports.Subscription{
		subscription{"hook2", ports.AnyTopic, "http://localhost:8080/any", false},
	})
	pubsub.On("ListSubscriptionsForTopic", "TX_UPDATED").Return([]ports.Subscription{
		subscription{"hook1", "TX_UPDATED", "http://localhost:8080/hook", true},
	})
	pubsub.On("ListSubscriptionsForTopic", mock.Anything).Return(nil)

	hooks, err := svc.ListWebhooks("TX_UPDATED")
	require.NoError(t, err)
	require.Equal(t, []application.WebhookInfo{
		{Id: "hook1", Topic: "TX_UPDATED", Endpoint: "http://localhost:8080/hook", IsSecured: true},
	}, hooks)

	hooks, err = svc.ListWebhooks("")
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	require.Equal(t, "hook2", hooks[0].Id)

	_, err = svc.ListWebhooks("UNKNOWN")
	require.ErrorIs(t, err, application.ErrUnknownTopic)

	pubsub.On("Unsubscribe", "TX_UPDATED", "hook1").Return(nil)
	require.NoError(t, svc.RemoveWebhook("TX_UPDATED", "hook1"))

	published := make(chan string, 1)
	pubsub.On("Publish", "TX_UPDATED", mock.Anything).
		Run(func(args mock.Arguments) {
			published <- args.String(1)
		}).
		Return(nil)

	svc.Publish(application.Event{
		Type:      application.EventTransactionsUpdated,
		AccountID: 1,
		Payload:   []string{"txid"},
	})

	select {
	case message := <-published:
		event := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(message), &event))
		require.Equal(t, "TX_UPDATED", event["type"])
		require.Equal(t, float64(1), event["accountId"])
		require.Equal(t, []interface{}{"txid"}, event["payload"])
	case <-time.After(time.Second):
		t.Fatal("webhook message not published")
	}

	pubsub.AssertExpectations(t)
}
