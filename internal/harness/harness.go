package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
	"github.com/roadwatch/roadwatch/internal/testutil"
	"github.com/roadwatch/roadwatch/internal/view"
)

// defaultRecentLimit sizes the overview notification slice when the
// scenario does not set one.
const defaultRecentLimit = 5

// TraceEvent records one change notification observed during a scenario run.
type TraceEvent struct {
	// Scope is the collection name or "notifications".
	Scope string `json:"scope"`

	// Revision is the store revision at the time of delivery.
	Revision int64 `json:"revision"`
}

// Result holds the observable outcome of a scenario run.
type Result struct {
	// Trace lists every change notification in delivery order. Rejected
	// steps contribute no events.
	Trace []TraceEvent

	// Overview is the final aggregated view of the store.
	Overview view.Overview
}

// Run executes a scenario against a fresh store and returns the change
// trace and final overview.
//
// Runs are fully deterministic: the store uses a clock that advances one
// second per reading from a fixed epoch, and a sequential ID generator, so
// the same scenario always yields the same trace and overview bytes.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewTickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
	opts := []store.Option{
		store.WithClock(clock.Now),
		store.WithIDGenerator(store.NewSequenceGenerator("note")),
	}
	if scenario.NotificationCap > 0 {
		opts = append(opts, store.WithNotificationCap(scenario.NotificationCap))
	}

	st := store.New(scenario.Collections, opts...)

	result := &Result{Trace: []TraceEvent{}}
	cancel := st.Subscribe(func(scope string) {
		result.Trace = append(result.Trace, TraceEvent{
			Scope:    scope,
			Revision: st.Snapshot().Revision(),
		})
	})
	defer cancel()

	for i, step := range scenario.Steps {
		if err := runStep(st, step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	limit := scenario.RecentLimit
	if limit == 0 {
		limit = defaultRecentLimit
	}
	overview, err := view.BuildOverview(st.Snapshot(), limit)
	if err != nil {
		return nil, fmt.Errorf("building overview: %w", err)
	}
	result.Overview = overview

	return result, nil
}

// runStep executes one mutation and checks it against the step's expected
// outcome.
func runStep(st *store.Store, step Step) error {
	var err error
	switch step.Op {
	case "add":
		err = st.AddRecord(step.Collection, domain.Record{Key: step.Key, Fields: step.Fields})
	case "update":
		err = st.UpdateRecord(step.Collection, step.Key, step.Fields)
	case "remove":
		err = st.RemoveRecord(step.Collection, step.Key)
	case "notify":
		category, ok := domain.ParseCategory(step.Category)
		if !ok {
			return fmt.Errorf("unknown category %q", step.Category)
		}
		st.PushNotification(domain.Notification{
			Title:    step.Title,
			Category: category,
			Source:   step.Source,
		})
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	return checkExpectation(step, err)
}

// checkExpectation matches a step's actual error against its expect_error
// clause.
func checkExpectation(step Step, err error) error {
	if step.ExpectError == "" {
		if err != nil {
			return fmt.Errorf("unexpected rejection: %w", err)
		}
		return nil
	}

	if err == nil {
		return fmt.Errorf("expected rejection %s, step succeeded", step.ExpectError)
	}

	var se *store.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("expected rejection %s, got: %w", step.ExpectError, err)
	}
	if string(se.Code) != step.ExpectError {
		return fmt.Errorf("expected rejection %s, got %s", step.ExpectError, se.Code)
	}
	return nil
}
