// Package ingress defines the transport-agnostic Bus contract the worker's
// event-bus-type flag selects an implementation of, and the message shape
// every adapter moves: a domain.Envelope in, a domain.ExecResult out.
package ingress

import (
	"context"

	"github.com/beamline-run/beamline/pkg/domain"
)

// Bus is the one interface every ingress/egress transport implements.
// Publish sends a result back out; Subscribe delivers inbound envelopes to
// handler until ctx is cancelled or the bus is closed.
type Bus interface {
	// Subscribe registers handler to be called for every inbound envelope.
	// It blocks until ctx is done or an unrecoverable transport error
	// occurs.
	Subscribe(ctx context.Context, handler func(context.Context, domain.Envelope) error) error

	// Publish sends one ExecResult out on the egress side of the bus.
	Publish(ctx context.Context, result domain.ExecResult) error

	// Close releases the underlying transport connection(s).
	Close() error
}
