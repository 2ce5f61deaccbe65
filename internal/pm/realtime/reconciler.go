package realtime

import (
	"context"
	"fmt"
	"time"

	"fieldservice_backend/internal/notification"
	"fieldservice_backend/internal/notification/sse"
	"fieldservice_backend/internal/pm/repository"
	"fieldservice_backend/internal/pm/service"
	"fieldservice_backend/internal/realtime"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// dedupCap bounds the idempotency-key window. Once exceeded, the oldest half
// is evicted so a long-lived subscription cannot grow without bound.
const dedupCap = 1000

// RefreshFunc reloads the tenant's visit collection from the store. Invoked
// as the scoped fallback when an update event references a visit the
// collection does not hold.
type RefreshFunc func(ctx context.Context) error

// Reconciler consumes pm_visits change batches for one tenant session. It
// deduplicates events, applies minimal in-place patches to the shared visit
// collection, detects notable transitions, and emits cooldown-limited
// notifications.
//
// All state is confined to the single listener goroutine that calls
// OnEventBatch; no locking is needed beyond the collection's atomic swap.
type Reconciler struct {
	tenantID uuid.UUID
	state    *service.VisitState
	notifier notification.Notifier
	refresh  RefreshFunc
	cooldown time.Duration
	clock    clockwork.Clock
	log      *logger.Logger

	seen      map[string]struct{}
	seenOrder []string
	lastFired map[string]time.Time
	lastKnown map[uuid.UUID]repository.PMVisit
}

// NewReconciler creates a reconciler for one tenant session.
func NewReconciler(tenantID uuid.UUID, state *service.VisitState, notifier notification.Notifier, refresh RefreshFunc, cooldown time.Duration, clock clockwork.Clock, log *logger.Logger) *Reconciler {
	return &Reconciler{
		tenantID:  tenantID,
		state:     state,
		notifier:  notifier,
		refresh:   refresh,
		cooldown:  cooldown,
		clock:     clock,
		log:       log,
		seen:      make(map[string]struct{}),
		lastFired: make(map[string]time.Time),
		lastKnown: make(map[uuid.UUID]repository.PMVisit),
	}
}

// OnEventBatch processes one ordered batch. It never returns an error: every
// failure is logged or handled with a narrow fallback so one bad event cannot
// block the events behind it. The patched collection becomes visible to
// readers in a single swap after the whole batch is applied.
func (r *Reconciler) OnEventBatch(ctx context.Context, events []realtime.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	working := append([]repository.PMVisit(nil), r.state.Snapshot()...)
	patched := false
	needRefresh := false

	for _, ev := range events {
		visit, err := DecodeVisit(ev.New)
		if err != nil {
			r.log.Warn("skipping undecodable visit event", "error", err)
			continue
		}

		key := idempotencyKey(ev, visit)
		if _, dup := r.seen[key]; dup {
			continue
		}
		r.remember(key)

		previous, hasPrevious := r.previousImage(ev, visit.ID)

		switch ev.Op {
		case realtime.OpInsert:
			if applied := prependIfAbsent(&working, visit); applied {
				patched = true
			}
		case realtime.OpUpdate:
			if shouldPatch(previous, hasPrevious, visit) {
				if replaceInPlace(working, visit) {
					patched = true
				} else {
					// Update for a visit the collection does not hold: the
					// in-memory state is inconsistent with the store. Fall
					// back to a scoped refresh rather than crash.
					r.log.Warn("update event for unknown visit, scheduling refresh",
						"visit_id", visit.ID)
					needRefresh = true
				}
			}
		}

		// Only update transitions are notable; a freshly inserted row that is
		// already completed or past-dated joins the collection silently.
		if ev.Op == realtime.OpUpdate {
			r.notifyTransitions(previous, hasPrevious, visit)
		}
		r.lastKnown[visit.ID] = visit
	}

	if patched {
		r.state.Replace(working)
	}
	if needRefresh && r.refresh != nil {
		if err := r.refresh(ctx); err != nil {
			r.log.Error("scoped visit refresh failed", "error", err)
		}
	}
}

// previousImage prefers the tracked last-known snapshot over the event's old
// row image: duplicate "completed" updates carry a completed old image only
// in the first event, but the snapshot map remembers across events.
func (r *Reconciler) previousImage(ev realtime.ChangeEvent, id uuid.UUID) (repository.PMVisit, bool) {
	if known, ok := r.lastKnown[id]; ok {
		return known, true
	}
	if ev.Op == realtime.OpUpdate && len(ev.Old) > 0 {
		old, err := DecodeVisit(ev.Old)
		if err == nil {
			return old, true
		}
		r.log.Warn("undecodable previous row image", "error", err)
	}
	return repository.PMVisit{}, false
}

// shouldPatch reports whether the update changes anything the collection
// surfaces: status, completion date, or assignee.
func shouldPatch(previous repository.PMVisit, hasPrevious bool, next repository.PMVisit) bool {
	if !hasPrevious {
		return true
	}
	if previous.Status != next.Status {
		return true
	}
	if !equalTimePtr(previous.CompletedDate, next.CompletedDate) {
		return true
	}
	return !equalStringPtr(previous.AssignedEngineer, next.AssignedEngineer)
}

// notifyTransitions fires cooldown-limited notifications for notable
// transitions: a visit becoming completed, or becoming overdue. The
// last-known comparison, not the cooldown, is what keeps a duplicate
// "completed" event from firing twice; the cooldown only coalesces distinct
// events within the window.
func (r *Reconciler) notifyTransitions(previous repository.PMVisit, hasPrevious bool, next repository.PMVisit) {
	now := r.clock.Now()

	if next.Status == repository.StatusCompleted && (!hasPrevious || previous.Status != repository.StatusCompleted) {
		r.emit("completed:"+next.ID.String(), sse.Notification{
			Message:     fmt.Sprintf("PM Visit completed at %s", facilityLabel(next)),
			Severity:    sse.SeveritySuccess,
			ActionRoute: "/pm/" + next.ID.String(),
		}, now)
	}

	if isOverdue(next, now) && (!hasPrevious || !isOverdue(previous, now)) {
		r.emit("overdue:"+next.ID.String(), sse.Notification{
			Message:     fmt.Sprintf("PM Visit overdue at %s", facilityLabel(next)),
			Severity:    sse.SeverityWarning,
			ActionRoute: "/pm/" + next.ID.String(),
		}, now)
	}
}

// emit sends a notification unless the same key fired within the cooldown.
func (r *Reconciler) emit(key string, n sse.Notification, now time.Time) {
	if last, ok := r.lastFired[key]; ok && now.Sub(last) < r.cooldown {
		return
	}
	r.lastFired[key] = now
	n.DisplayDurationMs = n.Severity.DisplayDurationMs()
	r.notifier.Notify(r.tenantID, n)
}

// remember records an idempotency key, evicting the oldest half of the
// window once the cap is exceeded.
func (r *Reconciler) remember(key string) {
	r.seen[key] = struct{}{}
	r.seenOrder = append(r.seenOrder, key)
	if len(r.seenOrder) <= dedupCap {
		return
	}

	half := len(r.seenOrder) / 2
	for _, old := range r.seenOrder[:half] {
		delete(r.seen, old)
	}
	r.seenOrder = append(r.seenOrder[:0], r.seenOrder[half:]...)
}

// idempotencyKey synthesizes an event identity from what the envelope and
// row image provide; change events carry no identity of their own.
func idempotencyKey(ev realtime.ChangeEvent, visit repository.PMVisit) string {
	return fmt.Sprintf("%s|%s|%s|%d", ev.Table, ev.Op, visit.ID, visit.UpdatedAt.UnixNano())
}

// isOverdue reports whether a non-terminal visit's scheduled date has passed.
func isOverdue(v repository.PMVisit, now time.Time) bool {
	if repository.IsTerminalStatus(v.Status) || v.ScheduledDate.IsZero() {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return v.ScheduledDate.Before(today)
}

func facilityLabel(v repository.PMVisit) string {
	if v.FacilityName != "" {
		return v.FacilityName
	}
	return "Facility"
}

func prependIfAbsent(visits *[]repository.PMVisit, visit repository.PMVisit) bool {
	for _, existing := range *visits {
		if existing.ID == visit.ID {
			return false
		}
	}
	*visits = append([]repository.PMVisit{visit}, *visits...)
	return true
}

func replaceInPlace(visits []repository.PMVisit, visit repository.PMVisit) bool {
	for i := range visits {
		if visits[i].ID == visit.ID {
			visits[i] = visit
			return true
		}
	}
	return false
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
