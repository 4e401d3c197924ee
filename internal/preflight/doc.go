// Package preflight provides readiness checks for the filesystem paths and
// object store settings yoloprep depends on.
//
// These checks run in two contexts:
//   - The placement stage calls ForPlacement before downloading anything, so a
//     full disk or read-only dataset fails the run before any transfer.
//   - The CLI "yoloprep doctor" command runs RunAll and prints every result.
package preflight
