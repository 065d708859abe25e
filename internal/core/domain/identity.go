package domain

import "time"

type Role string

const (
	RoleNone        Role = "none"
	RoleProducer    Role = "producer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleBuyer       Role = "buyer"
	RoleAdmin       Role = "admin"
)

// Identity tracks an address that has interacted with the ledger.
// pendingRequest == true implies Role == RoleNone.
type Identity struct {
	Address         string
	Role            Role
	PendingRequest  bool
	RequestRole     Role
	RequestMetadata []byte
	RequestedAt     time.Time
}
