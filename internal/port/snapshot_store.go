package port

import "github.com/vhoang/agritrace/internal/core/domain"

type SnapshotStore interface {
	// Save persists a full ledger state export
	Save(state domain.State) error

	// Load returns the most recent saved state, or ok=false if none exists
	Load() (domain.State, bool, error)
}
