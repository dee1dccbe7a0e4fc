package domain

import "time"

// Category tags a notification for display styling and aggregation.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
	CategoryInfo    Category = "info"
)

// Categories lists all valid categories in display order.
var Categories = []Category{CategorySuccess, CategoryWarning, CategoryError, CategoryInfo}

// Valid reports whether the category is one of the known tags.
func (c Category) Valid() bool {
	switch c {
	case CategorySuccess, CategoryWarning, CategoryError, CategoryInfo:
		return true
	}
	return false
}

// ParseCategory converts a string tag to a Category.
// Returns ("", false) for unknown tags.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// Notification is one entry in the bounded activity log shown on the
// dashboard. The log is kept most-recent-first.
type Notification struct {
	// ID uniquely identifies the notification. Assigned by the store on
	// push if empty.
	ID string `json:"id"`

	// Title is the human-readable headline.
	Title string `json:"title"`

	// Category is the display tag (success, warning, error, info).
	Category Category `json:"category"`

	// Source labels the originating system (e.g. "fines", "registry").
	Source string `json:"source"`

	// CreatedAt is the creation timestamp. Assigned by the store on push
	// if zero.
	CreatedAt time.Time `json:"created_at"`
}
