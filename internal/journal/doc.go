// Package journal persists the history of stage runs in SQLite.
//
// Every select, place, and organize invocation opens a run row keyed by a
// UUID, appends one event per unit that did not end in the common success
// path, and closes the run with its final counters. The journal is an
// operator aid: callers treat write failures as warnings and never abort a
// stage because of it.
package journal
