package diagnostics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MessageSnapshot is one message as reported by a looper's dump,
// expressed independently of msgloop's own Message/DumpEntry types so
// this package never needs to import the root module (which in turn
// may import diagnostics from its tests).
type MessageSnapshot struct {
	What     int
	Arg1     int
	Arg2     int
	When     time.Time
	Deadline time.Time
}

// Sink writes audit records backing postmortem inspection of a
// message-loop process: periodic queue dumps and watchdog timeout
// events. It never stores anything needed for delivery — losing the
// Sink changes nothing about in-flight message handling.
type Sink struct {
	db *bun.DB
}

// NewSink wraps a bun.DB that has already had InitDB run against it.
func NewSink(db *bun.DB) *Sink {
	return &Sink{db: db}
}

// RecordDump persists one queue snapshot as a batch of rows tagged with
// looperName and the time the snapshot was taken. An empty snapshot is
// a no-op.
func (s *Sink) RecordDump(ctx context.Context, looperName string, snapshot []MessageSnapshot) error {
	if len(snapshot) == 0 {
		return nil
	}
	rows := make([]*dumpRow, len(snapshot))
	now := time.Now()
	for i, m := range snapshot {
		row := &dumpRow{
			Id:         uuid.New(),
			LooperName: looperName,
			What:       m.What,
			Arg1:       m.Arg1,
			Arg2:       m.Arg2,
			When:       m.When,
			CapturedAt: now,
		}
		if !m.Deadline.IsZero() {
			d := m.Deadline
			row.Deadline = &d
		}
		rows[i] = row
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// RecordWatchdogFire persists one watchdog timeout event.
func (s *Sink) RecordWatchdogFire(ctx context.Context, nodeName string, timeoutMs int64) error {
	row := &fireRow{
		Id:        uuid.New(),
		NodeName:  nodeName,
		TimeoutMs: timeoutMs,
		FiredAt:   time.Now(),
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}
