package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/swapclient/pkg/config"
)

// Listener receives every notification added to the center. UI surfaces
// register one to render toasts.
type Listener func(Notification)

// Center holds the ephemeral notifications currently visible. It owns no
// durable state: notifications expire on their own and the whole center
// can be cleared at any time.
type Center struct {
	defaultTTL time.Duration

	mu            sync.Mutex
	notifications []Notification
	timers        map[string]*time.Timer

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

// NewCenter creates a notification center.
func NewCenter(cfg config.NotifyConfig) *Center {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Center{
		defaultTTL: ttl,
		timers:     make(map[string]*time.Timer),
		listeners:  make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (c *Center) Subscribe(l Listener) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Add creates a notification, schedules its expiry and fans it out to
// listeners. The returned value carries the generated ID.
func (c *Center) Add(level Level, title, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
		TTL:       c.defaultTTL,
	}

	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.timers[n.ID] = time.AfterFunc(n.TTL, func() {
		c.Remove(n.ID)
	})
	c.mu.Unlock()

	c.listenersMu.RLock()
	for _, l := range c.listeners {
		l(n)
	}
	c.listenersMu.RUnlock()

	return n
}

// Remove drops a notification by ID. Unknown IDs are a no-op.
func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.notifications {
		if n.ID == id {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			return
		}
	}
}

// ClearAll drops every notification and cancels their expiry timers.
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	c.notifications = nil
}

// Notifications returns a snapshot of the currently visible notifications
// in creation order.
func (c *Center) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notifications...)
}

// ShowSuccess adds a success notification.
func (c *Center) ShowSuccess(title, message string) {
	c.Add(LevelSuccess, title, message)
}

// ShowError adds an error notification.
func (c *Center) ShowError(title, message string) {
	c.Add(LevelError, title, message)
}

// ShowInfo adds an info notification.
func (c *Center) ShowInfo(title, message string) {
	c.Add(LevelInfo, title, message)
}

// ShowWarning adds a warning notification.
func (c *Center) ShowWarning(title, message string) {
	c.Add(LevelWarning, title, message)
}
