package port

// EventPublisher delivers domain events asynchronously, best effort. A
// publish must never block or fail the request path that triggered it.
type EventPublisher interface {
	Publish(topic string, key, value []byte)
}
