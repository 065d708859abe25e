package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/vhoang/agritrace/internal/core/domain"
)

// MySQLAdapter persists ledger notifications and sale records append-only.
// It is a write-behind journal: the in-memory engine stays authoritative and
// workers drain the event feed into here.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the journal tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id         VARCHAR(36) PRIMARY KEY,
			kind       VARCHAR(32) NOT NULL,
			record_ids VARCHAR(255) NOT NULL,
			caller     VARCHAR(128) NOT NULL,
			amount     BIGINT NOT NULL,
			at         DATETIME(6) NOT NULL,
			INDEX idx_events_at (at)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id          BIGINT UNSIGNED PRIMARY KEY,
			unit_id     BIGINT UNSIGNED NOT NULL,
			quantity    BIGINT NOT NULL,
			unit_price  BIGINT NOT NULL,
			seller      VARCHAR(128) NOT NULL,
			buyer       VARCHAR(128) NOT NULL,
			seller_role VARCHAR(16) NOT NULL,
			buyer_role  VARCHAR(16) NOT NULL,
			ts          DATETIME(6) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) AppendEvent(ctx context.Context, ev domain.Event) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO ledger_events (id, kind, record_ids, caller, amount, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Kind), joinIDs(ev.RecordIDs), ev.Caller, ev.Amount, ev.At,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sales (id, unit_id, quantity, unit_price, seller, buyer, seller_role, buyer_role, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.UnitID, sale.Quantity, sale.UnitPrice,
		sale.Seller, sale.Buyer, string(sale.SellerRole), string(sale.BuyerRole), sale.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, kind, record_ids, caller, amount, at
		FROM ledger_events ORDER BY at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var kind, ids string
		if err := rows.Scan(&ev.ID, &kind, &ids, &ev.Caller, &ev.Amount, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		ev.RecordIDs, err = splitIDs(ids)
		if err != nil {
			return nil, fmt.Errorf("decode record ids: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]uint64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
