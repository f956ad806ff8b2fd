package ports

const (
	// AnyTopic subscribes an endpoint to every event of the wallet.
	AnyTopic = "*"
	// UnspecifiedTopic selects the subscriptions of all topics when listing.
	UnspecifiedTopic = ""
)

// Subscription is a webhook registered for the events of a topic.
type Subscription interface {
	Id() string
	Topic() string
	// NotifyAt is the endpoint the events are POSTed to.
	NotifyAt() string
	// IsSecured tells whether deliveries carry a bearer token signed with the
	// secret of the hook.
	IsSecured() bool
}

// PubSub delivers the wallet events to the webhooks subscribed for their
// topic.
type PubSub interface {
	Subscribe(topic, endpoint, secret string) (string, error)
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the hooks of topic, or of every topic
	// if it is UnspecifiedTopic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish sends message to the hooks of topic and to those of AnyTopic,
	// returning once every delivery is done.
	Publish(topic string, message string) error
	Close() error
}
