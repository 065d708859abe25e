package service

import "github.com/vhoang/agritrace/internal/core/domain"

// UnitTrace is the full provenance chain of a sold unit, origin first.
type UnitTrace struct {
	Production   domain.ProductionRecord
	Distribution domain.DistributionRecord
	Pack         domain.PackRecord
	Unit         domain.UnitRecord
}

// BatchTrace is the forward fan-out of a production batch.
type BatchTrace struct {
	Production    domain.ProductionRecord
	Distributions []domain.DistributionRecord
	Packs         []domain.PackRecord
}

// TraceUnit walks a unit's parent links back to its origin batch. Records
// are never deleted, so every link in the chain resolves.
func (l *Ledger) TraceUnit(unitID uint64) (UnitTrace, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	unit, ok := l.units[unitID]
	if !ok {
		return UnitTrace{}, notFound("unit record", unitID)
	}
	pack := l.packs[unit.ParentID]
	dist := l.distributions[pack.ParentID]
	origin := l.productions[dist.OriginID]

	return UnitTrace{
		Production:   *origin,
		Distribution: *dist,
		Pack:         *pack,
		Unit:         *unit,
	}, nil
}

// PackOrigin returns the id of the production batch a pack descends from.
func (l *Ledger) PackOrigin(packID uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pack, ok := l.packs[packID]
	if !ok {
		return 0, notFound("pack record", packID)
	}
	return l.distributions[pack.ParentID].OriginID, nil
}

// BatchTraceOf returns a production batch with every distribution record
// derived from it and every pack derived from those. Full scans over
// append-only, moderate-cardinality tables.
func (l *Ledger) BatchTraceOf(productionID uint64) (BatchTrace, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	origin, ok := l.productions[productionID]
	if !ok {
		return BatchTrace{}, notFound("production record", productionID)
	}

	trace := BatchTrace{Production: *origin}
	derived := make(map[uint64]bool)
	for id := uint64(1); id <= l.lastDistributionID; id++ {
		if dist := l.distributions[id]; dist.OriginID == productionID {
			trace.Distributions = append(trace.Distributions, *dist)
			derived[id] = true
		}
	}
	for id := uint64(1); id <= l.lastPackID; id++ {
		if pack := l.packs[id]; derived[pack.ParentID] {
			trace.Packs = append(trace.Packs, *pack)
		}
	}
	return trace, nil
}
