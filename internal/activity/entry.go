package activity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidEntry = errors.New("invalid activity entry")

const (
	TypeSuccess = "success"
	TypeInfo    = "info"
	TypeWarning = "warning"
)

// Entry is a single line of a user's recent activity.
type Entry struct {
	ID        int       `json:"id"`
	Email     string    `json:"-"`
	Action    string    `json:"action"`
	Type      string    `json:"type"`
	IP        string    `json:"-"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *Entry) Validate() error {
	switch {
	case e == nil:
		return ErrInvalidEntry
	case e.Email == "":
		return fmt.Errorf("%w: empty email", ErrInvalidEntry)
	case e.Action == "":
		return fmt.Errorf("%w: empty action", ErrInvalidEntry)
	case e.CreatedAt.IsZero():
		return fmt.Errorf("%w: no timestamp", ErrInvalidEntry)
	}
	return nil
}

// TimeAgo renders the distance between t and now the way the dashboard shows it.
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
