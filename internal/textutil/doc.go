// Package textutil holds small text helpers shared by the stages: reading and
// writing newline-delimited identifier lists, atomic file replacement, and
// turning free-form labels into filesystem-safe tokens.
package textutil
