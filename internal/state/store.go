// Package state persists compiled template artifacts and build history in
// SQLite, so tooling can inspect tags and builds without recompiling.
package state

import "time"

// Artifact is one persisted compiled template.
type Artifact struct {
	ID       string
	Path     string
	MTime    time.Time
	Source   string
	Prologue string
	Theme    string
	SavedAt  time.Time
	Tags     []TagRecord
}

// TagRecord is one tag defined by an artifact.
type TagRecord struct {
	Name          string
	Line          int
	DeclaredAttrs []string
}

// BuildStatus reports how a recorded build finished.
type BuildStatus string

const (
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one recorded compile run over a set of templates.
type Build struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      BuildStatus
	Error       string
	Templates   int
}

// Store is the persistence interface for compiled artifacts.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	SaveArtifact(a *Artifact) error
	GetArtifact(path string) (*Artifact, error)
	ListArtifacts() ([]*Artifact, error)
	DeleteArtifact(path string) error
	Clear() error

	StartBuild() (*Build, error)
	CompleteBuild(id string, status BuildStatus, errMsg string, templates int) error
	ListBuilds(limit int) ([]*Build, error)
}
