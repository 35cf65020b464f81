package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"newsroom/domain/model"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// Hub keeps per-owner SSE subscribers for generation and publish status events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan model.StatusEvent]struct{}
}

func NewStatusHub() *Hub {
	return &Hub{users: make(map[string]map[chan model.StatusEvent]struct{})}
}

// Serve streams events for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan model.StatusEvent, 16)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			_, _ = c.Writer.Write([]byte(":ping\n\n"))
			c.Writer.Flush()
		case evt := <-ch:
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", evt.Type, data)
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan model.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan model.StatusEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan model.StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// Broadcast delivers to every subscriber of the event owner. Slow subscribers miss events.
func (h *Hub) Broadcast(evt model.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.users[evt.OwnerID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports how many streams an owner has open.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
