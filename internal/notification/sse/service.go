// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Severity tags a notification for client-side presentation.
type Severity string

// Notification severities.
const (
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeverityInfo     Severity = "info"
)

// DisplayDurationMs returns the bounded display duration for a severity.
func (s Severity) DisplayDurationMs() int {
	switch s {
	case SeverityCritical:
		return 6000
	case SeverityWarning:
		return 4000
	default:
		return 3000
	}
}

// Notification is the user-facing alert payload. Fire-and-forget: the sink
// never acknowledges delivery.
type Notification struct {
	Message           string   `json:"message"`
	Severity          Severity `json:"severity"`
	DisplayDurationMs int      `json:"displayDurationMs"`
	ActionRoute       string   `json:"actionRoute,omitempty"`
}

// client represents a connected SSE client. closed is guarded by the
// service mutex; the events channel is closed exactly once, whichever of
// removeClient or Close gets there first.
type client struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	events   chan Notification
	closed   bool
}

// Service manages SSE connections and notification broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // tenantID -> clients
}

// New creates a new SSE service
func New() *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
	}
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.tenantID] = append(s.clients[c.tenantID], c)
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.tenantID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.tenantID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.tenantID]) == 0 {
		delete(s.clients, c.tenantID)
	}

	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Notify broadcasts a notification to every connected client of the tenant.
// Clients with a full buffer are skipped rather than blocked on.
func (s *Service) Notify(tenantID uuid.UUID, n Notification) {
	if n.DisplayDurationMs == 0 {
		n.DisplayDurationMs = n.Severity.DisplayDurationMs()
	}

	// Sends happen under the read lock so a concurrent Close or removeClient
	// (which needs the write lock) cannot close a channel mid-send. Sends are
	// non-blocking, so the lock is never held waiting on a slow client.
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[tenantID] {
		select {
		case c.events <- n:
		default:
		}
	}
}

// Handler returns a Gin handler for SSE connections.
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), getTenantID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tenantID, ok := getTenantID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing tenant context"})
			return
		}

		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:   userID,
			tenantID: tenantID,
			events:   make(chan Notification, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID, "tenantId": tenantID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case n, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(n)
				c.SSEvent("notification", string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			if !c.closed {
				c.closed = true
				close(c.events)
			}
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
