package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The application uses this abstraction to keep broker/client concerns in adapters.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

// CodeSender delivers a recovery code to the user out-of-band. Delivery
// transport (email, SMS) is an external collaborator; failures surface as
// infrastructure faults.
type CodeSender interface {
	Send(ctx context.Context, recipient string, kind string, code string) error
}
