package application

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/pali-wallet/palid/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// EventType is the topic of an event published by the services.
type EventType string

const (
	EventTransactionsUpdated EventType = "TX_UPDATED"
	EventTokensUpdated       EventType = "TOKENS_UPDATED"
	EventWalletUpdated       EventType = "WALLET_UPDATED"
	EventFlowUpdated         EventType = "FLOW_UPDATED"
	EventAccountConnected    EventType = "ACCOUNT_CONNECTED"
	EventWalletLocked        EventType = "WALLET_LOCKED"
	EventWalletUnlocked      EventType = "WALLET_UNLOCKED"
	EventNetworkChanged      EventType = "NETWORK_CHANGED"
)

// AllEventTypes lists the topics webhooks can subscribe to, besides the
// any topic.
var AllEventTypes = []EventType{
	EventTransactionsUpdated, EventTokensUpdated, EventWalletUpdated,
	EventFlowUpdated, EventAccountConnected, EventWalletLocked,
	EventWalletUnlocked, EventNetworkChanged,
}

func isValidTopic(topic string) bool {
	if topic == ports.AnyTopic {
		return true
	}
	for _, t := range AllEventTypes {
		if string(t) == topic {
			return true
		}
	}
	return false
}

// Event is the message published to listeners and webhooks.
type Event struct {
	Type      EventType   `json:"type"`
	AccountID int         `json:"accountId"`
	Network   string      `json:"network,omitempty"`
	Origin    string      `json:"origin,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventListener is notified of every published event. OnEvent must not
// block.
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a func to the EventListener interface.
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) { f(event) }

// WebhookInfo is the public info of a webhook subscription.
type WebhookInfo struct {
	Id        string `json:"id"`
	Topic     string `json:"topic"`
	Endpoint  string `json:"endpoint"`
	IsSecured bool   `json:"isSecured"`
}

// PubSubService dispatches the events of the services to the in-process
// listeners, like the message bus, and to the webhook subscribers.
type PubSubService interface {
	AddListener(listener EventListener)
	Publish(event Event)
	AddWebhook(endpoint, topic, secret string) (string, error)
	RemoveWebhook(topic, id string) error
	ListWebhooks(topic string) ([]WebhookInfo, error)
}

type pubSubService struct {
	pubsub ports.PubSub

	lock      sync.RWMutex
	listeners []EventListener
}

// NewPubSubService returns a new dispatcher. pubsub is optional, webhook
// methods fail with ErrWebhookManagerNotInitialized if nil.
func NewPubSubService(pubsub ports.PubSub) PubSubService {
	return &pubSubService{
		pubsub:    pubsub,
		listeners: make([]EventListener, 0),
	}
}

func (s *pubSubService) AddListener(listener EventListener) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.listeners = append(s.listeners, listener)
}

func (s *pubSubService) Publish(event Event) {
	s.lock.RLock()
	listeners := make([]EventListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.lock.RUnlock()

	for _, l := range listeners {
		l.OnEvent(event)
	}

	if s.pubsub == nil {
		return
	}
	message, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warnf("failed to serialize %s event", event.Type)
		return
	}
	go func() {
		if err := s.pubsub.Publish(string(event.Type), string(message)); err != nil {
			log.WithError(err).Warnf(
				"an error occured while publishing message for topic %s", event.Type,
			)
		}
	}()
}

func (s *pubSubService) AddWebhook(endpoint, topic, secret string) (string, error) {
	if s.pubsub == nil {
		return "", ErrWebhookManagerNotInitialized
	}
	if !isValidTopic(topic) {
		return "", fmt.Errorf("%w %q", ErrUnknownTopic, topic)
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidWebhookEndpoint, err)
	}
	return s.pubsub.Subscribe(topic, endpoint, secret)
}

func (s *pubSubService) RemoveWebhook(topic, id string) error {
	if s.pubsub == nil {
		return ErrWebhookManagerNotInitialized
	}
	return s.pubsub.Unsubscribe(topic, id)
}

func (s *pubSubService) ListWebhooks(topic string) ([]WebhookInfo, error) {
	if s.pubsub == nil {
		return nil, ErrWebhookManagerNotInitialized
	}
	if topic != ports.UnspecifiedTopic && !isValidTopic(topic) {
		return nil, fmt.Errorf("%w %q", ErrUnknownTopic, topic)
	}

	topics := []string{topic}
	if topic == ports.UnspecifiedTopic {
		topics = []string{ports.AnyTopic}
		for _, t := range AllEventTypes {
			topics = append(topics, string(t))
		}
	}

	hooks := make([]WebhookInfo, 0)
	for _, t := range topics {
		for _, sub := range s.pubsub.ListSubscriptionsForTopic(t) {
			hooks = append(hooks, WebhookInfo{
				Id:        sub.Id(),
				Topic:     sub.Topic(),
				Endpoint:  sub.NotifyAt(),
				IsSecured: sub.IsSecured(),
			})
		}
	}
	return hooks, nil
}
