package domain

import "time"

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// ProductionRecord is an origin batch created by a producer. It is the root
// of every provenance chain; its quantity only ever decreases.
type ProductionRecord struct {
	ID                uint64
	Owner             string
	Name              string
	Period            string
	MaturityDays      int64
	OriginalQuantity  int64
	RemainingQuantity int64
	UnitPrice         int64
	Location          string
	Visibility        Visibility
	ContentRef        string
	CreatedAt         time.Time
	Active            bool
}
