package diagnostics_test

import (
	"context"
	"testing"
	"time"

	"github.com/romanqed/msgloop/diagnostics"
)

func TestSQLRetentionCleanDumps(t *testing.T) {
	db := newTestDB(t)
	sink := diagnostics.NewSink(db)
	retain := diagnostics.NewSQLRetention(db)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	if err := sink.RecordDump(ctx, "looper", []diagnostics.MessageSnapshot{{What: 1, When: old}}); err != nil {
		t.Fatal(err)
	}

	n, err := retain.CleanDumps(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row removed, got %d", n)
	}

	obs := diagnostics.NewObserver(db)
	records, err := obs.DumpHistory(ctx, "looper", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no rows left, got %d", len(records))
	}
}

func TestRetentionWorkerSweepsPeriodically(t *testing.T) {
	db := newTestDB(t)
	sink := diagnostics.NewSink(db)
	ctx := context.Background()

	if err := sink.RecordWatchdogFire(ctx, "node", 50); err != nil {
		t.Fatal(err)
	}

	retain := diagnostics.NewSQLRetention(db)
	worker := diagnostics.NewRetentionWorker(retain, diagnostics.RetentionConfig{
		Interval: 20 * time.Millisecond,
		MaxAge:   -time.Millisecond, // everything is already "old enough"
	}, nil)
	worker.Start(ctx)
	defer worker.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		obs := diagnostics.NewObserver(db)
		records, err := obs.FireHistory(ctx, "node", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("retention worker did not sweep the fire row in time")
}
