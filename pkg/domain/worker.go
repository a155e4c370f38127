package domain

import "time"

// Worker is a read-only view of a worker record.
type Worker struct {
	ID          string    `json:"id" yaml:"id"`
	Unit        string    `json:"unit" yaml:"unit"`
	Operation   string    `json:"operation" yaml:"operation"`
	Started     time.Time `json:"started" yaml:"started"`
	Detached    bool      `json:"detached,omitempty" yaml:"detached,omitempty"`
	Interrupted bool      `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	Done        bool      `json:"done,omitempty" yaml:"done,omitempty"`
}

// Invocation describes one completed (or abandoned) invocation.
type Invocation struct {
	Unit      string
	Operation string
	WorkerID  string
	Started   time.Time
	Duration  time.Duration
	Reloaded  bool
	Migration MigrationReport
}

// MigrationReport summarises one structural migration.
type MigrationReport struct {
	// Copied counts attributes assigned by reference (platform values).
	Copied int
	// Migrated counts nested unit instances re-created in the new context.
	Migrated int
	// Skipped lists attributes that could not be carried over.
	Skipped []AttributeSkippedError
}

// TeardownReport summarises one Shutdown pass.
type TeardownReport struct {
	Released []string
	Failures []ReleaseError
	// Abandoned lists workers that did not stop within the grace period.
	Abandoned []Worker
}
