package chathub

import "fluxe/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket).
// It abstracts the underlying communication mechanism, allowing the hub to manage
// connections uniformly.
type Client interface {
	// GetConnectionID returns the ephemeral identifier of this connection.
	// Peers address each other by it.
	GetConnectionID() string

	// GetSendChannel returns the channel to which the hub sends envelopes
	// intended for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's outbound channel. It is called once, by the
	// registry, after the connection has been removed.
	Close()
}

// Notifier delivers an envelope to one connection. It reports false when the
// connection is unknown or cannot accept the envelope.
type Notifier interface {
	Send(connectionID string, env models.Envelope) bool
}
