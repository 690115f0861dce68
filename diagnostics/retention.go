package diagnostics

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Retention permanently removes old audit rows. These rows carry no
// delivery semantics, so there is no notion of a "bad status" to
// reject — age is the only eligibility criterion.
type Retention interface {
	// CleanDumps deletes dump rows captured at or before before and
	// returns how many were removed.
	CleanDumps(ctx context.Context, before time.Time) (int64, error)
	// CleanFires deletes watchdog-fire rows recorded at or before
	// before and returns how many were removed.
	CleanFires(ctx context.Context, before time.Time) (int64, error)
}

// SQLRetention implements Retention directly against the audit tables
// InitDB creates.
type SQLRetention struct {
	db *bun.DB
}

// NewSQLRetention wraps a bun.DB that has already had InitDB run
// against it.
func NewSQLRetention(db *bun.DB) *SQLRetention {
	return &SQLRetention{db: db}
}

func (r *SQLRetention) CleanDumps(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*dumpRow)(nil)).
		Where("captured_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLRetention) CleanFires(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*fireRow)(nil)).
		Where("fired_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
