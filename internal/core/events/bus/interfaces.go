package bus

import "time"

// EventBus is an in-process pub/sub bus carrying world lifecycle events.
//
// Delivery is synchronous: Publish calls handlers in the caller goroutine in
// subscription order. Handler errors are joined and returned to the publisher.
// The default topic is "". All methods are safe for concurrent use.
type EventBus interface {
	// Publish delivers the event to the subscribers of event.Type() in the
	// default topic.
	Publish(event Event) error
	// PublishToTopic delivers the event within a topic.
	PublishToTopic(topic string, event Event) error

	// Subscribe registers a handler for an event type in the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeTopic registers a handler for an event type within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the subscription. Nil is ignored.
	Unsubscribe(Subscription) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// Metrics are only collected while at least one observer is registered.
	Metrics() Metrics
	Topics() []TopicInfo
}

// Event is an immutable message transported by the bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel removes the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, elapsed time.Duration)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}

type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
