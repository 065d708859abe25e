package domain

import "time"

type EventKind string

const (
	EventAdmissionRequested EventKind = "admission_requested"
	EventAdmissionApproved  EventKind = "admission_approved"
	EventAdmissionRevoked   EventKind = "admission_revoked"
	EventRetailerPromoted   EventKind = "retailer_promoted"
	EventProductionCreated  EventKind = "production_created"
	EventProductionUpdated  EventKind = "production_updated"
	EventDistributionMade   EventKind = "distribution_acquired"
	EventPacksSplit         EventKind = "packs_split"
	EventPackListed         EventKind = "pack_listed"
	EventTransferOpened     EventKind = "transfer_opened"
	EventTransferResolved   EventKind = "transfer_resolved"
	EventUnitsSplit         EventKind = "units_split"
	EventUnitListed         EventKind = "unit_listed"
	EventUnitSold           EventKind = "unit_sold"
	EventCreditAccrued      EventKind = "credit_accrued"
	EventCreditWithdrawn    EventKind = "credit_withdrawn"
)

// Event is the structured notification emitted after every successful
// mutating operation so observers can react without polling.
type Event struct {
	ID        string
	Kind      EventKind
	RecordIDs []uint64
	Caller    string
	Amount    int64
	At        time.Time
}
