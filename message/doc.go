// Package message defines the unit of work a Looper dispatches.
//
// Message is a transport-level payload independent of delivery/queueing
// concerns, carrying the scheduling and callback fields a message-loop
// needs (When, Deadline, HandleFunc/FreeFunc/TimeoutFunc, Owner).
// Messages are never persisted and are addressed by timestamp rather
// than by id.
//
// Message does not enforce immutability by itself, but the dispatch
// contract does: once a Post/PostDelay/PostFront call returns nil, the
// caller must not touch the Message again. It belongs to the looper
// until HandleFunc/FreeFunc/TimeoutFunc runs and Recycle is called.
package message
