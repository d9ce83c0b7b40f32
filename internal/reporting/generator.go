package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/storage"
)

// DefaultLimit bounds the number of outcomes and tributes read.
const DefaultLimit = 100

// Generator produces reports from stored data.
type Generator struct {
	outcomeStore storage.OutcomeStore
	tributeStore storage.TributeStore
	limit        int
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. tributeStore may be nil.
func NewGenerator(outcomeStore storage.OutcomeStore, tributeStore storage.TributeStore) *Generator {
	return &Generator{
		outcomeStore: outcomeStore,
		tributeStore: tributeStore,
		limit:        DefaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithLimit sets how many recent records are read.
func (g *Generator) WithLimit(n int) *Generator {
	if n > 0 {
		g.limit = n
	}
	return g
}

// Generate produces a report over the most recent records.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	outcomes, err := g.outcomeStore.Recent(ctx, g.limit)
	if err != nil {
		return nil, err
	}

	var tributes []*domain.TributeRecord
	if g.tributeStore != nil {
		tributes, err = g.tributeStore.Recent(ctx, g.limit)
		if err != nil {
			return nil, err
		}
	}

	return &Report{
		GeneratedAt: g.now(),
		Summary:     summarize(outcomes, tributes),
		Breakdown:   breakdown(outcomes),
		Outcomes:    outcomeRows(outcomes),
		Tributes:    tributeRows(tributes),
	}, nil
}

func summarize(outcomes []*domain.ActionOutcome, tributes []*domain.TributeRecord) Summary {
	s := Summary{Cycles: len(outcomes), TributeCount: len(tributes), TributeTotal: decimal.Zero}
	for _, o := range outcomes {
		switch {
		case o.Success:
			s.Succeeded++
		case o.Ambiguous:
			s.Ambiguous++
		default:
			s.Failed++
		}
		if !o.Snapshot.Complete() {
			s.UnknownReadout++
		}
		if s.FirstCycleAt.IsZero() || o.FinishedAt.Before(s.FirstCycleAt) {
			s.FirstCycleAt = o.FinishedAt
		}
		if o.FinishedAt.After(s.LastCycleAt) {
			s.LastCycleAt = o.FinishedAt
		}
	}
	for _, t := range tributes {
		if t.Status == domain.TributeConfirmed {
			s.TributeTotal = s.TributeTotal.Add(t.Amount)
		}
	}
	return s
}

var tierOrder = map[domain.Tier]int{
	domain.TierUnknown:     0,
	domain.TierCritical:    1,
	domain.TierStabilizing: 2,
	domain.TierNominal:     3,
}

func breakdown(outcomes []*domain.ActionOutcome) []BreakdownRow {
	type key struct {
		tier   domain.Tier
		action domain.Action
	}
	counts := make(map[key]*BreakdownRow)
	for _, o := range outcomes {
		k := key{o.Tier, o.ActionTaken}
		row, ok := counts[k]
		if !ok {
			row = &BreakdownRow{Tier: string(o.Tier), Action: string(o.ActionTaken)}
			counts[k] = row
		}
		row.Count++
		if o.Success {
			row.Succeeded++
		}
	}

	rows := make([]BreakdownRow, 0, len(counts))
	for _, row := range counts {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := tierOrder[domain.Tier(rows[i].Tier)], tierOrder[domain.Tier(rows[j].Tier)]
		if ti != tj {
			return ti < tj
		}
		return rows[i].Action < rows[j].Action
	})
	return rows
}

func outcomeRows(outcomes []*domain.ActionOutcome) []OutcomeRow {
	rows := make([]OutcomeRow, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, OutcomeRow{
			CycleID:    o.CycleID,
			FinishedAt: o.FinishedAt,
			Tier:       string(o.Tier),
			Action:     string(o.ActionTaken),
			Success:    o.Success,
			Ambiguous:  o.Ambiguous,
			Native:     o.Snapshot.Native.String(),
			Stable:     o.Snapshot.Stable.String(),
			Target:     o.Target,
			TxRef:      o.TransactionRef,
			Error:      o.Error,
		})
	}
	return rows
}

func tributeRows(tributes []*domain.TributeRecord) []TributeRow {
	rows := make([]TributeRow, 0, len(tributes))
	for _, t := range tributes {
		rows = append(rows, TributeRow{
			CreatedAt: t.CreatedAt,
			Amount:    t.Amount,
			Recipient: t.Recipient,
			Signature: t.Signature,
			Status:    string(t.Status),
		})
	}
	return rows
}
