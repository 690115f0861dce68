// Package diagnostics provides an optional SQL-backed audit trail for a
// msgloop process: periodic queue-dump snapshots and watchdog timeout
// events, kept purely for postmortem inspection.
//
// It deliberately stores nothing needed for message delivery. A
// process that never wires diagnostics in behaves identically to one
// that does; losing the diagnostics database loses history, not
// in-flight messages. Delivery itself stays on msgloop's in-memory
// queue; diagnostics only ever inspects and retains audit rows
// alongside it.
//
// # Usage
//
// Call InitDB once against a configured *bun.DB to create the audit
// tables, then feed a Sink from Looper.Dump snapshots and watchdog
// fire callbacks. Observer answers read-only history queries; an
// optional RetentionWorker prunes rows older than a configured age.
package diagnostics
