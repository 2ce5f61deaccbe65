package realtime

import (
	"context"
	"sync"

	"fieldservice_backend/internal/notification"
	"fieldservice_backend/internal/pm/service"
	"fieldservice_backend/internal/realtime"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// changeChannel is the notify channel the pm_visits trigger publishes on.
// It must match the pg_notify call in the pm_visits_notify migration, so it
// is a constant rather than configuration.
const changeChannel = "pm_visits_changes"

// SessionManager owns one realtime session per tenant: a tenant-scoped
// change-event listener feeding a reconciler over the tenant's shared visit
// collection. Sessions are started lazily and torn down together on Close.
type SessionManager struct {
	pool     *pgxpool.Pool
	svc      *service.Service
	notifier notification.Notifier
	cfg      config.RealtimeConfig
	clock    clockwork.Clock
	log      *logger.Logger

	mu       sync.Mutex
	baseCtx  context.Context
	stop     context.CancelFunc
	sessions map[uuid.UUID]*session
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionManager creates the manager. Sessions run until Close or until
// the listener exhausts its resubscribe budget.
func NewSessionManager(pool *pgxpool.Pool, svc *service.Service, notifier notification.Notifier, cfg config.RealtimeConfig, clock clockwork.Clock, log *logger.Logger) *SessionManager {
	baseCtx, stop := context.WithCancel(context.Background())
	return &SessionManager{
		pool:     pool,
		svc:      svc,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		log:      log,
		baseCtx:  baseCtx,
		stop:     stop,
		sessions: make(map[uuid.UUID]*session),
	}
}

// EnsureSession starts a realtime session for the tenant if none is running.
// Safe to call on every client connection; an existing session is reused.
func (m *SessionManager) EnsureSession(tenantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.baseCtx.Err() != nil {
		return m.baseCtx.Err()
	}
	if _, running := m.sessions[tenantID]; running {
		return nil
	}

	ctx, cancel := context.WithCancel(m.baseCtx)

	reconciler := NewReconciler(
		tenantID,
		m.svc.States().For(tenantID),
		m.notifier,
		func(ctx context.Context) error { return m.svc.RefreshState(ctx, tenantID) },
		m.cfg.GetNotifyCooldown(),
		m.clock,
		m.log,
	)

	// While resubscribing the collection may be stale; a fresh load on every
	// (re)subscribe closes the gap over any events missed in between.
	onState := func(state realtime.ConnState) {
		if state != realtime.StateSubscribed {
			return
		}
		if err := m.svc.RefreshState(ctx, tenantID); err != nil {
			m.log.Error("visit state refresh after subscribe failed",
				"tenant_id", tenantID, "error", err)
		}
	}

	listener, err := realtime.NewListener(m.pool, changeChannel, tenantID, reconciler.OnEventBatch, onState, m.log)
	if err != nil {
		cancel()
		return err
	}

	s := &session{cancel: cancel, done: make(chan struct{})}
	m.sessions[tenantID] = s

	go func() {
		defer close(s.done)
		defer m.forget(tenantID)
		if err := listener.Run(ctx); err != nil {
			m.log.Error("realtime session ended with transport error",
				"tenant_id", tenantID, "error", err)
		}
	}()

	return nil
}

// StopSession tears down the tenant's session and waits for it to exit.
func (m *SessionManager) StopSession(tenantID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[tenantID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.cancel()
	<-s.done
}

// Close stops every session and prevents new ones from starting.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.stop()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		<-s.done
	}
}

func (m *SessionManager) forget(tenantID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, tenantID)
	m.mu.Unlock()
}
