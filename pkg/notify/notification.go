package notify

import "time"

// Level classifies a notification for presentation.
type Level string

const (
	// LevelSuccess marks a positive outcome (rating received, swap done).
	LevelSuccess Level = "success"

	// LevelError marks a failure the user should act on.
	LevelError Level = "error"

	// LevelInfo marks neutral status updates.
	LevelInfo Level = "info"

	// LevelWarning marks something off but not failed.
	LevelWarning Level = "warning"
)

// Notification is one ephemeral user-facing message. It lives in the
// center until its TTL elapses or it is removed.
type Notification struct {
	ID        string        `json:"id"`
	Level     Level         `json:"level"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}
