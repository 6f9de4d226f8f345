package bus

// PublishOptions controls how a relay publishes an integration event.
type PublishOptions struct {
	// TopicOverride replaces IntegrationEvent.Topic when set.
	TopicOverride string
	// Key is the partition or routing key. Empty means none.
	Key string
	// Headers are copied onto every message; the map itself is never modified.
	Headers map[string]string
}
