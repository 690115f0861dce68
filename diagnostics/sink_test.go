package diagnostics_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/romanqed/msgloop/diagnostics"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := diagnostics.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSinkRecordDumpAndObserve(t *testing.T) {
	db := newTestDB(t)
	sink := diagnostics.NewSink(db)
	obs := diagnostics.NewObserver(db)
	ctx := context.Background()

	snapshot := []diagnostics.MessageSnapshot{
		{What: 1, Arg1: 10, When: time.Now()},
		{What: 2, Arg1: 20, When: time.Now().Add(time.Second)},
	}
	if err := sink.RecordDump(ctx, "test-looper", snapshot); err != nil {
		t.Fatal(err)
	}

	records, err := obs.DumpHistory(ctx, "test-looper", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 dump records, got %d", len(records))
	}
}

func TestSinkRecordDumpEmptyIsNoop(t *testing.T) {
	db := newTestDB(t)
	sink := diagnostics.NewSink(db)
	if err := sink.RecordDump(context.Background(), "test-looper", nil); err != nil {
		t.Fatal(err)
	}
}

func TestSinkRecordWatchdogFire(t *testing.T) {
	db := newTestDB(t)
	sink := diagnostics.NewSink(db)
	obs := diagnostics.NewObserver(db)
	ctx := context.Background()

	if err := sink.RecordWatchdogFire(ctx, "handler-node", 200); err != nil {
		t.Fatal(err)
	}

	records, err := obs.FireHistory(ctx, "handler-node", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 fire record, got %d", len(records))
	}
	if records[0].TimeoutMs != 200 {
		t.Fatalf("expected timeout_ms=200, got %d", records[0].TimeoutMs)
	}
}
