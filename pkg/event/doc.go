// Package event provides the shared vocabulary of the Vigil suspicion engine.
//
// # Overview
//
// Every component of the engine (event log, suspicion aggregator, report
// collector, rumor propagator, spatial memory and case bundler) consumes and
// produces Event values. An Event is an immutable record of something that
// happened in the simulation: an actor entered a zone, a rule was violated,
// a rumor was shared, a verdict was given.
//
// # Kinds and Categories
//
// Kind is a closed enum. Nothing outside the listed constants is a valid
// kind, and Kind.Validate rejects anything else. Category is never set
// directly: it is always derived with CategoryOf, so two events of the same
// kind always carry the same category.
//
//	e := event.Event{Kind: event.KindViolationDetected, RuleID: "R_QUEUE"}
//	e.Normalize()
//	// e.Category == event.CategoryRule
//
// # Line Format
//
// The persisted log is line oriented: one compact JSON object per event.
// MarshalLine and UnmarshalLine convert between Event and that form. The
// category stored in a line is ignored on read and derived again.
//
// # Time
//
// Event.At is simulation time (elapsed since the simulation started), not
// wall-clock time. It is assigned by the event log on ingest.
package event
