// Package harness executes declarative store scenarios for conformance
// testing. A scenario drives mutations against a fresh store with a
// deterministic clock and ID generator, records the change trace, and
// compares the final overview against a golden file.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Collections registered on the fresh store, in declaration order.
	Collections []string `yaml:"collections"`

	// NotificationCap bounds the notification log. 0 means the store
	// default.
	NotificationCap int `yaml:"notification_cap,omitempty"`

	// RecentLimit sizes the notification slice of the final overview.
	// 0 means 5.
	RecentLimit int `yaml:"recent_limit,omitempty"`

	// Steps are the mutations to execute in order.
	Steps []Step `yaml:"steps"`
}

// Step is a single store mutation with an optional expected rejection.
type Step struct {
	// Op is one of "add", "update", "remove", "notify".
	Op string `yaml:"op"`

	// Collection and Key address a record for add, update, and remove.
	Collection string `yaml:"collection,omitempty"`
	Key        string `yaml:"key,omitempty"`

	// Fields holds record attributes for add, or the merge patch for
	// update.
	Fields map[string]string `yaml:"fields,omitempty"`

	// Title, Category, and Source describe a notification for notify.
	Title    string `yaml:"title,omitempty"`
	Category string `yaml:"category,omitempty"`
	Source   string `yaml:"source,omitempty"`

	// ExpectError names the error code the step must be rejected with
	// (DUPLICATE_KEY, NOT_FOUND, INVALID_ARGUMENT). Empty means the step
	// must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos in scenario files.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if len(s.Collections) == 0 {
		return fmt.Errorf("collections list is required and must be non-empty")
	}

	if s.NotificationCap < 0 {
		return fmt.Errorf("notification_cap must not be negative")
	}

	if s.RecentLimit < 0 {
		return fmt.Errorf("recent_limit must not be negative")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case "add", "update", "remove":
			if step.Collection == "" {
				return fmt.Errorf("steps[%d]: collection is required for %s", i, step.Op)
			}
			if step.Key == "" {
				return fmt.Errorf("steps[%d]: key is required for %s", i, step.Op)
			}
		case "notify":
			if step.Title == "" {
				return fmt.Errorf("steps[%d]: title is required for notify", i)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	return nil
}
