package domain

import "time"

// UnitRecord is a retailer-owned portion of a pack, sized for sale to an
// end buyer.
type UnitRecord struct {
	ID                uint64
	ParentID          uint64
	Owner             string
	RemainingQuantity int64
	UnitPrice         int64
	Available         bool
	ContentRef        string
	CreatedAt         time.Time
	ListedForBuyers   bool
}

// SaleRecord is the immutable record of a single unit sale. Roles are
// snapshotted at sale time because either party's role may change later.
type SaleRecord struct {
	ID         uint64
	UnitID     uint64
	Quantity   int64
	UnitPrice  int64
	Seller     string
	Buyer      string
	SellerRole Role
	BuyerRole  Role
	Timestamp  time.Time
}
