package webhookpubsub

import (
	"errors"

	"github.com/pali-wallet/palid/internal/core/ports"
)

var (
	// ErrMissingTopic is returned when subscribing without a topic.
	ErrMissingTopic = errors.New("missing topic")
	// ErrInvalidEndpoint is returned if the webhook endpoint is not a valid
	// URI.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint, must be a valid URI")
	// ErrSubscriptionNotFound is returned when unsubscribing an unknown id.
	ErrSubscriptionNotFound = ports.ErrSubscriptionNotFound
)
