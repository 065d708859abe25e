package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vhoang/agritrace/internal/core/domain"
	"github.com/vhoang/agritrace/internal/port"
)

const defaultEventBuffer = 1024

// Ledger is the custody ledger engine. Every mutating operation runs under
// the write lock and either applies completely or not at all: preconditions
// are checked before any state is written. Queries run under the read lock
// and observe the state as of the last completed operation.
type Ledger struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	gateway port.PaymentGateway
	now     func() time.Time

	admin string

	identities  map[string]*domain.Identity
	roster      []string
	rosterIndex map[string]int

	productions   map[uint64]*domain.ProductionRecord
	distributions map[uint64]*domain.DistributionRecord
	packs         map[uint64]*domain.PackRecord
	units         map[uint64]*domain.UnitRecord
	transfers     map[uint64]*domain.TransferRequest
	sales         []domain.SaleRecord

	pendingCredits map[string]int64
	settling       bool

	lastProductionID   uint64
	lastDistributionID uint64
	lastPackID         uint64
	lastUnitID         uint64
	lastTransferID     uint64
	lastSaleID         uint64

	events chan domain.Event
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithEventBuffer(size int) Option {
	return func(l *Ledger) { l.events = make(chan domain.Event, size) }
}

// New creates an empty ledger. The admin identity is fixed to the given
// address for the lifetime of the ledger.
func New(admin string, gateway port.PaymentGateway, opts ...Option) *Ledger {
	l := &Ledger{
		logger:         slog.Default(),
		gateway:        gateway,
		now:            time.Now,
		admin:          admin,
		identities:     make(map[string]*domain.Identity),
		rosterIndex:    make(map[string]int),
		productions:    make(map[uint64]*domain.ProductionRecord),
		distributions:  make(map[uint64]*domain.DistributionRecord),
		packs:          make(map[uint64]*domain.PackRecord),
		units:          make(map[uint64]*domain.UnitRecord),
		transfers:      make(map[uint64]*domain.TransferRequest),
		pendingCredits: make(map[string]int64),
		events:         make(chan domain.Event, defaultEventBuffer),
	}

	for _, opt := range opts {
		opt(l)
	}

	ident := l.touch(admin)
	ident.Role = domain.RoleAdmin

	return l
}

// Restore rebuilds a ledger from a state export.
func Restore(state domain.State, gateway port.PaymentGateway, opts ...Option) *Ledger {
	l := New(state.Admin, gateway, opts...)

	for i := range state.Identities {
		ident := state.Identities[i]
		l.identities[ident.Address] = &ident
	}
	l.roster = append([]string(nil), state.Roster...)
	l.rosterIndex = make(map[string]int, len(l.roster))
	for i, addr := range l.roster {
		l.rosterIndex[addr] = i
	}

	for i := range state.Productions {
		rec := state.Productions[i]
		l.productions[rec.ID] = &rec
	}
	for i := range state.Distributions {
		rec := state.Distributions[i]
		l.distributions[rec.ID] = &rec
	}
	for i := range state.Packs {
		rec := state.Packs[i]
		l.packs[rec.ID] = &rec
	}
	for i := range state.Units {
		rec := state.Units[i]
		l.units[rec.ID] = &rec
	}
	for i := range state.Transfers {
		req := state.Transfers[i]
		l.transfers[req.ID] = &req
	}
	l.sales = append([]domain.SaleRecord(nil), state.Sales...)

	for addr, amount := range state.PendingCredits {
		l.pendingCredits[addr] = amount
	}

	l.lastProductionID = state.LastProductionID
	l.lastDistributionID = state.LastDistributionID
	l.lastPackID = state.LastPackID
	l.lastUnitID = state.LastUnitID
	l.lastTransferID = state.LastTransferID
	l.lastSaleID = state.LastSaleID

	return l
}

// Snapshot exports the full ledger state for persistence.
func (l *Ledger) Snapshot() domain.State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := domain.State{
		Admin:              l.admin,
		Roster:             append([]string(nil), l.roster...),
		Sales:              append([]domain.SaleRecord(nil), l.sales...),
		PendingCredits:     make(map[string]int64, len(l.pendingCredits)),
		LastProductionID:   l.lastProductionID,
		LastDistributionID: l.lastDistributionID,
		LastPackID:         l.lastPackID,
		LastUnitID:         l.lastUnitID,
		LastTransferID:     l.lastTransferID,
		LastSaleID:         l.lastSaleID,
		TakenAt:            l.now(),
	}

	for _, addr := range l.roster {
		state.Identities = append(state.Identities, *l.identities[addr])
	}
	for id := uint64(1); id <= l.lastProductionID; id++ {
		state.Productions = append(state.Productions, *l.productions[id])
	}
	for id := uint64(1); id <= l.lastDistributionID; id++ {
		state.Distributions = append(state.Distributions, *l.distributions[id])
	}
	for id := uint64(1); id <= l.lastPackID; id++ {
		state.Packs = append(state.Packs, *l.packs[id])
	}
	for id := uint64(1); id <= l.lastUnitID; id++ {
		state.Units = append(state.Units, *l.units[id])
	}
	for id := uint64(1); id <= l.lastTransferID; id++ {
		state.Transfers = append(state.Transfers, *l.transfers[id])
	}
	for addr, amount := range l.pendingCredits {
		state.PendingCredits[addr] = amount
	}

	return state
}

// Admin returns the fixed administrator address.
func (l *Ledger) Admin() string {
	return l.admin
}

// Events returns the notification feed. Every successful mutating operation
// emits exactly one event (plus settlement events where credit moves).
func (l *Ledger) Events() <-chan domain.Event {
	return l.events
}

// Close closes the notification feed. No mutating operation may be issued
// after Close.
func (l *Ledger) Close() {
	close(l.events)
}

// touch returns the identity for addr, creating it lazily and adding the
// address to the roster on first sight. Caller must hold the write lock.
func (l *Ledger) touch(addr string) *domain.Identity {
	if ident, ok := l.identities[addr]; ok {
		return ident
	}
	ident := &domain.Identity{Address: addr, Role: domain.RoleNone}
	l.identities[addr] = ident
	l.rosterIndex[addr] = len(l.roster)
	l.roster = append(l.roster, addr)
	return ident
}

// roleOf reads the current role without creating an identity. Caller must
// hold at least the read lock.
func (l *Ledger) roleOf(addr string) domain.Role {
	if ident, ok := l.identities[addr]; ok {
		return ident.Role
	}
	return domain.RoleNone
}

// emit publishes a notification on the feed. The feed never blocks a
// mutating operation; a full buffer drops the event with a warning.
func (l *Ledger) emit(kind domain.EventKind, caller string, amount int64, recordIDs ...uint64) {
	ev := domain.Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		RecordIDs: recordIDs,
		Caller:    caller,
		Amount:    amount,
		At:        l.now(),
	}
	select {
	case l.events <- ev:
	default:
		l.logger.Warn("event feed full, dropping notification",
			"kind", kind, "caller", caller, "record_ids", recordIDs)
	}
}
