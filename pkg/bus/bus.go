// Package bus wraps NATS JetStream for the fixed agent/heartbeat subject
// grammar the control plane uses to dispatch measurement requests and
// collect results, heartbeats, and module-state broadcasts.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
)

// Bus wraps a NATS JetStream connection for publishing and consuming events.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a Bus connected to the provided NATS endpoint.
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// EnsureStream creates the JetStream stream covering subjects if absent, or
// replaces its subject list with subjects if one already exists.
// Coordinator and agent startup both call this so either side can come up
// first.
func (b *Bus) EnsureStream(name string, subjects []string) error {
	if b == nil {
		return errors.New("nil bus")
	}
	_, err := b.js.AddStream(&nats.StreamConfig{Name: name, Subjects: subjects})
	if err != nil && errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		_, err = b.js.UpdateStream(&nats.StreamConfig{Name: name, Subjects: subjects})
	}
	return err
}

// Publish encodes v as JSON and publishes it to subj with no trace headers.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	return b.PublishWithHeaders(ctx, subj, v, nil)
}

// PublishWithHeaders encodes v as JSON and publishes it to subj, carrying
// headers (typically W3C trace-context fields) alongside the payload.
func (b *Bus) PublishWithHeaders(ctx context.Context, subj string, v any, headers map[string]string) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(subj)
	msg.Data = data
	for k, val := range headers {
		msg.Header.Set(k, val)
	}

	_, err = b.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Handler processes one message's payload and headers. Subscribe guarantees
// handlers on a single subscription are invoked single-threaded, in arrival
// order, so a module's per-subject worker loop never sees concurrent calls.
type Handler func(ctx context.Context, data []byte, headers map[string]string) error

// Subscribe creates a durable consumer on subj and invokes fn for each
// message, acking on success and nacking (for broker-side redelivery) on
// error.
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, fn Handler) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var headers map[string]string
		if msg.Header != nil {
			headers = make(map[string]string, len(msg.Header))
			for k := range msg.Header {
				headers[k] = msg.Header.Get(k)
			}
		}

		if err := fn(handlerCtx, msg.Data, headers); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}

	sub, err := b.js.Subscribe(subj, handler, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}
