package realtime

import (
	"context"
	"errors"
	"time"

	"fieldservice_backend/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// debounceWindow is how long the listener keeps draining notifications after
// the first one arrives before flushing the batch to the handler.
const debounceWindow = 300 * time.Millisecond

// maxResubscribeAttempts bounds consecutive failed resubscriptions before the
// listener gives up and returns the transport error to its owner.
const maxResubscribeAttempts = 5

// ConnState describes the subscription's transport state. While not
// subscribed, consumers should treat their local collections as
// possibly-stale.
type ConnState string

// Connection states reported to the state callback.
const (
	StateSubscribed    ConnState = "subscribed"
	StateResubscribing ConnState = "resubscribing"
	StateClosed        ConnState = "closed"
)

// BatchHandler processes one ordered batch of change events. The listener
// never starts the next batch until the handler returns.
type BatchHandler func(ctx context.Context, events []ChangeEvent)

// Listener holds a tenant-scoped subscription to a notify channel. Events
// for other tenants are dropped before they reach the handler.
type Listener struct {
	pool     *pgxpool.Pool
	channel  string
	tenantID uuid.UUID
	handler  BatchHandler
	onState  func(ConnState)
	log      *logger.Logger
}

// NewListener creates a tenant-scoped listener. A nil tenant is a
// configuration error: subscriptions are never opened unscoped.
func NewListener(pool *pgxpool.Pool, channel string, tenantID uuid.UUID, handler BatchHandler, onState func(ConnState), log *logger.Logger) (*Listener, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("realtime: tenant context is required to subscribe")
	}
	if channel == "" {
		return nil, errors.New("realtime: notify channel is required")
	}
	if handler == nil {
		return nil, errors.New("realtime: batch handler is required")
	}
	return &Listener{
		pool:     pool,
		channel:  channel,
		tenantID: tenantID,
		handler:  handler,
		onState:  onState,
		log:      log,
	}, nil
}

// Run subscribes and blocks, delivering batches until ctx is cancelled. A
// dropped subscription is retried with exponential backoff; only after the
// retry budget is exhausted does the transport error surface to the caller.
func (l *Listener) Run(ctx context.Context) error {
	defer l.setState(StateClosed)

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxResubscribeAttempts),
		ctx,
	)

	return backoff.Retry(func() error {
		err := l.listen(ctx)
		if err == nil || ctx.Err() != nil {
			// Normal teardown.
			return nil
		}
		l.setState(StateResubscribing)
		l.log.SubscriptionEvent(l.channel, "resubscribing")
		return err
	}, policy)
}

// listen holds one subscription until it drops or ctx is cancelled.
func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// A connection that has issued LISTEN must not return to the pool in
	// that state.
	defer func() {
		cleanup, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(cleanup, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	l.setState(StateSubscribed)
	l.log.SubscriptionEvent(l.channel, "subscribed")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		batch := l.collect(ctx, conn, notification.Payload)
		if len(batch) > 0 {
			// Synchronous dispatch: a new batch cannot begin until this
			// one's patch-and-notify work has completed.
			l.handler(ctx, batch)
		}
	}
}

// collect debounces: after the first notification it keeps draining until the
// channel stays quiet for the debounce window, then returns the batch in
// arrival order.
func (l *Listener) collect(ctx context.Context, conn *pgxpool.Conn, first string) []ChangeEvent {
	batch := make([]ChangeEvent, 0, 8)
	if ev, ok := l.decode(first); ok {
		batch = append(batch, ev)
	}

	for {
		waitCtx, cancel := context.WithTimeout(ctx, debounceWindow)
		notification, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			// Quiet window elapsed or the parent context ended; flush what
			// we have either way.
			return batch
		}
		if ev, ok := l.decode(notification.Payload); ok {
			batch = append(batch, ev)
		}
	}
}

// decode parses a payload and applies the tenant filter. Undecodable
// payloads are logged and dropped; they must not stall the stream.
func (l *Listener) decode(payload string) (ChangeEvent, bool) {
	ev, err := DecodeChangeEvent([]byte(payload))
	if err != nil {
		l.log.Warn("dropping undecodable change notification", "channel", l.channel, "error", err)
		return ChangeEvent{}, false
	}
	if ev.TenantID != l.tenantID {
		return ChangeEvent{}, false
	}
	return ev, true
}

func (l *Listener) setState(state ConnState) {
	if l.onState != nil {
		l.onState(state)
	}
}
