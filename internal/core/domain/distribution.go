package domain

import "time"

// DistributionRecord is a quantity acquired from a production batch by a
// distributor. OriginID never changes after creation.
type DistributionRecord struct {
	ID                uint64
	OriginID          uint64
	Owner             string
	RemainingQuantity int64
	AcquiredUnitPrice int64
	ListedUnitPrice   int64
	Visibility        Visibility
	CreatedAt         time.Time
	Active            bool
}

// PackRecord is a portion of a distribution sized for handoff to a retailer.
type PackRecord struct {
	ID                uint64
	ParentID          uint64
	Owner             string
	RemainingQuantity int64
	UnitPrice         int64
	Visibility        Visibility
	RestrictedBuyer   string
	Available         bool
	ContentRef        string
	CreatedAt         time.Time
}
