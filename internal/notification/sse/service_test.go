package sse

import (
	"testing"

	"github.com/google/uuid"
)

func newTestClient(tenantID uuid.UUID) *client {
	return &client{
		userID:   uuid.New(),
		tenantID: tenantID,
		events:   make(chan Notification, 32),
	}
}

func TestDisplayDurationBySeverity(t *testing.T) {
	cases := []struct {
		severity Severity
		wantMs   int
	}{
		{SeverityCritical, 6000},
		{SeverityWarning, 4000},
		{SeveritySuccess, 3000},
		{SeverityInfo, 3000},
	}

	for _, tc := range cases {
		if got := tc.severity.DisplayDurationMs(); got != tc.wantMs {
			t.Errorf("DisplayDurationMs(%s) = %d, want %d", tc.severity, got, tc.wantMs)
		}
	}
}

func TestNotifyDeliversToTenantClients(t *testing.T) {
	svc := New()
	tenantID := uuid.New()
	cl := newTestClient(tenantID)
	other := newTestClient(uuid.New())
	svc.addClient(cl)
	svc.addClient(other)

	svc.Notify(tenantID, Notification{Message: "visit completed", Severity: SeveritySuccess})

	select {
	case n := <-cl.events:
		if n.Message != "visit completed" {
			t.Fatalf("unexpected message %q", n.Message)
		}
		if n.DisplayDurationMs != 3000 {
			t.Fatalf("expected severity default duration 3000, got %d", n.DisplayDurationMs)
		}
	default:
		t.Fatal("expected notification for tenant client")
	}

	select {
	case n := <-other.events:
		t.Fatalf("unexpected cross-tenant delivery: %+v", n)
	default:
	}
}

// A handler that unwinds after service shutdown runs its deferred
// removeClient on a client Close already released. Neither path may close
// the events channel twice.
func TestRemoveClientAfterCloseDoesNotPanic(t *testing.T) {
	svc := New()
	cl := newTestClient(uuid.New())
	svc.addClient(cl)

	svc.Close()
	svc.removeClient(cl)

	if _, open := <-cl.events; open {
		t.Fatal("expected events channel to be closed")
	}
}

func TestCloseAfterRemoveClientDoesNotPanic(t *testing.T) {
	svc := New()
	tenantID := uuid.New()
	cl := newTestClient(tenantID)
	stays := newTestClient(tenantID)
	svc.addClient(cl)
	svc.addClient(stays)

	svc.removeClient(cl)
	svc.Close()
	svc.Close()
}

func TestNotifyAfterCloseIsNoOp(t *testing.T) {
	svc := New()
	tenantID := uuid.New()
	cl := newTestClient(tenantID)
	svc.addClient(cl)

	svc.Close()
	svc.Notify(tenantID, Notification{Message: "late", Severity: SeverityInfo})
}

func TestNotifySkipsClientsWithFullBuffer(t *testing.T) {
	svc := New()
	tenantID := uuid.New()
	cl := &client{userID: uuid.New(), tenantID: tenantID, events: make(chan Notification)}
	svc.addClient(cl)

	done := make(chan struct{})
	go func() {
		svc.Notify(tenantID, Notification{Message: "dropped", Severity: SeverityInfo})
		close(done)
	}()

	<-done
}
