package domain

import "time"

// State is a full export of the ledger, used for snapshot persistence.
// Record slices are ordered by id; the Last* counters are the highest ids
// handed out so far.
type State struct {
	Admin          string
	Identities     []Identity
	Roster         []string
	Productions    []ProductionRecord
	Distributions  []DistributionRecord
	Packs          []PackRecord
	Units          []UnitRecord
	Transfers      []TransferRequest
	Sales          []SaleRecord
	PendingCredits map[string]int64

	LastProductionID   uint64
	LastDistributionID uint64
	LastPackID         uint64
	LastUnitID         uint64
	LastTransferID     uint64
	LastSaleID         uint64

	TakenAt time.Time
}
