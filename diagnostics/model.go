package diagnostics

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// dumpRow is one message snapshot as captured by Looper.Dump, persisted
// purely for postmortem inspection: a read-only record of what a
// looper's queue looked like at CapturedAt.
type dumpRow struct {
	bun.BaseModel `bun:"table:msgloop_dumps"`
	Id            uuid.UUID `bun:"id,pk,type:uuid"`

	LooperName string     `bun:"looper_name,notnull"`
	What       int        `bun:"what,notnull"`
	Arg1       int        `bun:"arg1,notnull"`
	Arg2       int        `bun:"arg2,notnull"`
	When       time.Time  `bun:"when_at,notnull"`
	Deadline   *time.Time `bun:"deadline_at,nullzero,default:null"`

	CapturedAt time.Time `bun:"captured_at,nullzero,notnull,default:current_timestamp"`
}

// fireRow is one watchdog timeout event, recorded so postmortems can
// tell which armed call site expired and when.
type fireRow struct {
	bun.BaseModel `bun:"table:msgloop_watchdog_fires"`
	Id            uuid.UUID `bun:"id,pk,type:uuid"`

	NodeName  string `bun:"node_name,notnull"`
	TimeoutMs int64  `bun:"timeout_ms,notnull"`

	FiredAt time.Time `bun:"fired_at,nullzero,notnull,default:current_timestamp"`
}
