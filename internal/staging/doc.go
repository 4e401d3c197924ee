// Package staging manages the scratch workspaces stages download and extract
// into. Each run owns one workspace and removes it on exit; CleanStale sweeps
// up workspaces left behind by runs that were killed.
package staging
