package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// retailerUnit runs the handoff chain and returns a retailer-owned unit of
// the given size at price 7.
func retailerUnit(t *testing.T, l *Ledger, quantity int64) uint64 {
	t.Helper()
	ctx := context.Background()
	packID := listedPack(t, l, quantity)
	reqID, err := l.OpenTransfer(ctx, retailer, packID, quantity, false, quantity*7)
	require.NoError(t, err)
	require.NoError(t, l.ResolveTransfer(ctx, distributor, reqID, true))
	units := l.OwnUnits(retailer)
	return units[len(units)-1].ID
}

func TestSplitUnit(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)

	childIDs, err := l.SplitUnit(ctx, retailer, unitID,
		[]int64{8, 12}, []int64{9, 10}, []string{"bafy-x", "bafy-y"})
	require.NoError(t, err)
	require.Len(t, childIDs, 2)

	parent, _ := l.Unit(unitID)
	assert.Equal(t, int64(0), parent.RemainingQuantity)
	assert.False(t, parent.Available)

	child, err := l.Unit(childIDs[0])
	require.NoError(t, err)
	assert.Equal(t, parent.ParentID, child.ParentID, "children stay parented to the same pack")
	assert.Equal(t, retailer, child.Owner)
	assert.Equal(t, int64(8), child.RemainingQuantity)
	assert.Equal(t, int64(9), child.UnitPrice)
	assert.False(t, child.ListedForBuyers)
}

func TestSplitUnit_Failures(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)

	_, err := l.SplitUnit(ctx, distributor, unitID, []int64{5}, []int64{9}, []string{""})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = l.SplitUnit(ctx, retailer, 999, []int64{5}, []int64{9}, []string{""})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.SplitUnit(ctx, retailer, unitID, []int64{5, 5}, []int64{9}, []string{""})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = l.SplitUnit(ctx, retailer, unitID, []int64{21}, []int64{9}, []string{""})
	assert.ErrorIs(t, err, ErrQuantityExceeded)

	// Nothing changed on the failed paths.
	unit, _ := l.Unit(unitID)
	assert.Equal(t, int64(20), unit.RemainingQuantity)
}

func TestListUnitForBuyers(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)

	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))
	unit, _ := l.Unit(unitID)
	assert.True(t, unit.ListedForBuyers)
	assert.True(t, unit.Available)

	listed := l.UnitsListedForBuyers()
	require.Len(t, listed, 1)
	assert.Equal(t, unitID, listed[0].ID)

	err := l.ListUnitForBuyers(ctx, distributor, unitID)
	assert.ErrorIs(t, err, ErrNotOwner)
	err = l.ListUnitForBuyers(ctx, retailer, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSell(t *testing.T) {
	l, gw := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)
	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))

	saleID, err := l.Sell(ctx, buyer, unitID, 5, 35)
	require.NoError(t, err)

	sale, err := l.Sale(saleID)
	require.NoError(t, err)
	assert.Equal(t, unitID, sale.UnitID)
	assert.Equal(t, int64(5), sale.Quantity)
	assert.Equal(t, int64(7), sale.UnitPrice)
	assert.Equal(t, retailer, sale.Seller)
	assert.Equal(t, buyer, sale.Buyer)
	assert.Equal(t, domain.RoleRetailer, sale.SellerRole)
	assert.Equal(t, domain.RoleBuyer, sale.BuyerRole)

	unit, _ := l.Unit(unitID)
	assert.Equal(t, int64(15), unit.RemainingQuantity)

	assert.Equal(t, int64(35), gw.receivedBy(retailer))
	assert.Equal(t, domain.RoleBuyer, l.RoleOf(buyer), "first purchase marks the caller a buyer")
}

func TestSell_RoleSnapshotSurvivesChange(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)
	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))

	saleID, err := l.Sell(ctx, buyer, unitID, 5, 35)
	require.NoError(t, err)

	// Seller loses its role afterwards; the sale still shows it as retailer.
	require.NoError(t, l.RevokeAdmission(ctx, admin, retailer))
	sale, _ := l.Sale(saleID)
	assert.Equal(t, domain.RoleRetailer, sale.SellerRole)
}

func TestSell_DrainsAndDeactivates(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)
	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))

	_, err := l.Sell(ctx, buyer, unitID, 20, 140)
	require.NoError(t, err)

	unit, _ := l.Unit(unitID)
	assert.Equal(t, int64(0), unit.RemainingQuantity)
	assert.False(t, unit.Available)

	_, err = l.Sell(ctx, buyer, unitID, 1, 7)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestSell_Failures(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)

	// Not listed for buyers yet.
	_, err := l.Sell(ctx, buyer, unitID, 5, 35)
	assert.ErrorIs(t, err, ErrNotAvailable)

	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))

	tests := []struct {
		name     string
		unit     uint64
		quantity int64
		payment  int64
		wantErr  error
	}{
		{"unknown unit", 999, 5, 35, ErrNotFound},
		{"zero quantity", unitID, 0, 0, ErrInvalidQuantity},
		{"over remaining", unitID, 21, 147, ErrInsufficientQuantity},
		{"wrong payment", unitID, 5, 36, ErrBadPayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Sell(ctx, buyer, tt.unit, tt.quantity, tt.payment)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	unit, _ := l.Unit(unitID)
	assert.Equal(t, int64(20), unit.RemainingQuantity)
	assert.Empty(t, l.PurchaseHistory(buyer))
}

func TestPurchaseHistory(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	unitID := retailerUnit(t, l, 20)
	require.NoError(t, l.ListUnitForBuyers(ctx, retailer, unitID))

	_, err := l.Sell(ctx, buyer, unitID, 5, 35)
	require.NoError(t, err)
	_, err = l.Sell(ctx, "0xother", unitID, 3, 21)
	require.NoError(t, err)

	assert.Len(t, l.PurchaseHistory(buyer), 1)
	assert.Len(t, l.PurchaseHistory("0xother"), 1)
	assert.Len(t, l.PurchaseHistory(retailer), 2, "matches as seller too")
	assert.Empty(t, l.PurchaseHistory(producer))
}
