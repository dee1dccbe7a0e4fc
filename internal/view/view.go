// Package view implements stateless aggregations over store snapshots.
//
// Every function here is a pure function of the snapshot it is given: no
// hidden state, no side effects. Since snapshots are immutable, view
// functions are safe to call concurrently from any number of readers.
package view

import (
	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
)

// Counts returns the current length of every registered collection,
// including zero-length ones.
func Counts(snap *store.Snapshot) map[string]int {
	out := make(map[string]int)
	for _, name := range snap.Collections() {
		out[name] = snap.Len(name)
	}
	return out
}

// RecentNotifications returns the first n entries of the notification log,
// which is already most-recent-first. If the log holds fewer than n entries,
// the whole log is returned in unchanged order.
//
// Fails with INVALID_ARGUMENT if n is negative.
func RecentNotifications(snap *store.Snapshot, n int) ([]domain.Notification, error) {
	if n < 0 {
		return nil, store.NewInvalidArgumentError("recent notification limit must not be negative")
	}

	notes := snap.Notifications()
	if n > len(notes) {
		n = len(notes)
	}
	return notes[:n], nil
}

// CategoryTotals returns the number of logged notifications per category,
// including zero for categories with no entries.
func CategoryTotals(snap *store.Snapshot) map[domain.Category]int {
	out := make(map[domain.Category]int, len(domain.Categories))
	for _, c := range domain.Categories {
		out[c] = 0
	}
	for _, n := range snap.Notifications() {
		out[n.Category]++
	}
	return out
}

// Overview is the combined payload behind the dashboard's KPI cards and
// activity feed: collection counts, notification category totals, and the
// recent slice of the log, stamped with the snapshot revision.
type Overview struct {
	Revision      int64                   `json:"revision"`
	Counts        map[string]int          `json:"counts"`
	Categories    map[domain.Category]int `json:"categories"`
	Notifications []domain.Notification   `json:"notifications"`
}

// BuildOverview computes the Overview for a snapshot with the recent-n
// notification slice.
//
// Fails with INVALID_ARGUMENT if n is negative.
func BuildOverview(snap *store.Snapshot, n int) (Overview, error) {
	recent, err := RecentNotifications(snap, n)
	if err != nil {
		return Overview{}, err
	}
	if recent == nil {
		// Keep JSON consumers on [] rather than null.
		recent = []domain.Notification{}
	}

	return Overview{
		Revision:      snap.Revision(),
		Counts:        Counts(snap),
		Categories:    CategoryTotals(snap),
		Notifications: recent,
	}, nil
}
