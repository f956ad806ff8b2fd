package webhookpubsub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang-jwt/jwt"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/circuitbreaker"
	"github.com/pali-wallet/palid/pkg/httputil"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const (
	requestTimeout          = 15 * time.Second
	tokenExpiration         = 5 * time.Minute
	maxConcurrentDeliveries = 8
)

type service struct {
	store *store
	cb    *gobreaker.CircuitBreaker
}

// NewService returns a pubsub notifying webhooks, whose subscriptions are
// stored in a badger db in baseDir. An empty baseDir keeps them in memory.
func NewService(baseDir string, logger badger.Logger) (ports.PubSub, error) {
	s, err := newStore(baseDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening pubsub db: %w", err)
	}

	return &service{
		store: s,
		cb:    circuitbreaker.NewCircuitBreaker("webhook"),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	if err := ws.store.add(*sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	return ws.store.remove(id)
}

// ListSubscriptionsForTopic returns the subscriptions registered for
// exactly the given topic, or all of them if the topic is unspecified.
func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	subs, err := ws.store.list(topic)
	if err != nil {
		log.WithError(err).Warn("failed to list webhooks")
		return nil
	}
	return subs.toPortable()
}

// Publish delivers the message to the subscribers of the topic and to those
// of any topic.
func (ws *service) Publish(topic string, message string) error {
	topics := []string{topic}
	if topic != ports.AnyTopic {
		topics = append(topics, ports.AnyTopic)
	}
	subs, err := ws.store.list(topics...)
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	eg.SetLimit(maxConcurrentDeliveries)
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			now := time.Now()
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
				Subject:   sub.Event,
				IssuedAt:  now.Unix(),
				ExpiresAt: now.Add(tokenExpiration).Unix(),
			})
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		status, resp, err := httputil.NewHTTPRequest(
			ctx, http.MethodPost, sub.Endpoint, payload, headers,
		)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("webhook %s returned %d: %s", sub.ID, status, resp)
		}
		return nil, nil
	})
	return err
}
