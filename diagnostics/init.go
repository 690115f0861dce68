package diagnostics

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createDumpTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*dumpRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createFireTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*fireRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createDumpCapturedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*dumpRow)(nil)).
		Index("idx_msgloop_dumps_captured").
		Column("looper_name", "captured_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createFireFiredIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*fireRow)(nil)).
		Index("idx_msgloop_fires_fired").
		Column("node_name", "fired_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createDumpTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createFireTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createDumpCapturedIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createFireFiredIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB creates the dump/watchdog-fire audit tables and their indexes
// inside a single transaction, rolling back on any failure. It is
// idempotent and safe to call on every process start.
//
// The caller is responsible for providing a properly configured *bun.DB.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics on failure, for application
// bootstrap code where missing audit schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
