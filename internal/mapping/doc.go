// Package mapping persists the table that joins original object-store keys to
// the flat file names chosen during image placement.
//
// Placement records one entry per image that is downloaded or already
// present; association loads the table once and treats it as read-only.
// Keys keep their original casing and separators so lookups never depend on
// re-normalizing label paths.
//
// Record enforces two invariants and fails fast on either: an identifier is
// bound to exactly one flat name, and a flat name is owned by exactly one
// identifier.
package mapping
