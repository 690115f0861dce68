package diagnostics

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// DumpRecord is a read-only snapshot of one persisted dump row.
type DumpRecord struct {
	LooperName string
	What       int
	Arg1       int
	Arg2       int
	When       time.Time
	Deadline   *time.Time
	CapturedAt time.Time
}

// FireRecord is a read-only snapshot of one persisted watchdog-fire row.
type FireRecord struct {
	NodeName  string
	TimeoutMs int64
	FiredAt   time.Time
}

// Observer provides read-only access to persisted audit records. It
// never modifies storage and never participates in dispatch.
type Observer struct {
	db *bun.DB
}

// NewObserver wraps a bun.DB that has already had InitDB run against it.
func NewObserver(db *bun.DB) *Observer {
	return &Observer{db: db}
}

// DumpHistory returns up to limit dump rows for looperName, most recent
// first. A non-positive limit returns every matching row.
func (o *Observer) DumpHistory(ctx context.Context, looperName string, limit int) ([]DumpRecord, error) {
	var rows []*dumpRow
	query := o.db.NewSelect().
		Model(&rows).
		Where("looper_name = ?", looperName).
		Order("captured_at DESC")
	if limit > 0 {
		query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]DumpRecord, len(rows))
	for i, r := range rows {
		out[i] = DumpRecord{
			LooperName: r.LooperName,
			What:       r.What,
			Arg1:       r.Arg1,
			Arg2:       r.Arg2,
			When:       r.When,
			Deadline:   r.Deadline,
			CapturedAt: r.CapturedAt,
		}
	}
	return out, nil
}

// FireHistory returns up to limit watchdog-fire rows for nodeName, most
// recent first. A non-positive limit returns every matching row.
func (o *Observer) FireHistory(ctx context.Context, nodeName string, limit int) ([]FireRecord, error) {
	var rows []*fireRow
	query := o.db.NewSelect().
		Model(&rows).
		Where("node_name = ?", nodeName).
		Order("fired_at DESC")
	if limit > 0 {
		query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]FireRecord, len(rows))
	for i, r := range rows {
		out[i] = FireRecord{NodeName: r.NodeName, TimeoutMs: r.TimeoutMs, FiredAt: r.FiredAt}
	}
	return out, nil
}
