package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vhoang/agritrace/internal/core/domain"
)

const (
	admin       = "0xadmin"
	producer    = "0xproducer"
	distributor = "0xdistributor"
	retailer    = "0xretailer"
	buyer       = "0xbuyer"
)

var errGatewayDown = errors.New("gateway down")

// mockGateway records pushes and can be told to fail for some or all
// recipients.
type mockGateway struct {
	mu       sync.Mutex
	received map[string]int64
	failFor  map[string]bool
	failAll  bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		received: make(map[string]int64),
		failFor:  make(map[string]bool),
	}
}

func (g *mockGateway) Transfer(ctx context.Context, recipient string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll || g.failFor[recipient] {
		return errGatewayDown
	}
	g.received[recipient] += amount
	return nil
}

func (g *mockGateway) receivedBy(recipient string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.received[recipient]
}

func (g *mockGateway) block(recipient string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failFor[recipient] = true
}

func (g *mockGateway) unblock(recipient string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failFor, recipient)
}

// newTestLedger builds a ledger with a deterministic clock and the given
// roles already admitted.
func newTestLedger() (*Ledger, *mockGateway) {
	gw := newMockGateway()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l := New(admin, gw, WithClock(func() time.Time { return now }))

	ctx := context.Background()
	for addr, role := range map[string]domain.Role{
		producer:    domain.RoleProducer,
		distributor: domain.RoleDistributor,
		retailer:    domain.RoleRetailer,
	} {
		l.touch(addr)
		if err := l.ApproveAdmission(ctx, admin, addr, role); err != nil {
			panic(err)
		}
	}
	return l, gw
}

// seedBatch creates a production batch of quantity 100 at price 5 owned by
// the producer and makes it public.
func seedBatch(l *Ledger) uint64 {
	ctx := context.Background()
	id, err := l.CreateProduction(ctx, producer, ProductionInput{
		Name:       "arabica",
		Period:     "2025-wet",
		Quantity:   100,
		UnitPrice:  5,
		Location:   "dalat",
		Visibility: domain.VisibilityPublic,
		ContentRef: "bafy-batch",
	})
	if err != nil {
		panic(err)
	}
	return id
}

// drainEvents consumes buffered notifications so assertions about newly
// emitted events start clean.
func drainEvents(l *Ledger) {
	for {
		select {
		case <-l.events:
		default:
			return
		}
	}
}
