// Package associate places YOLO label files next to images that an earlier,
// independent placement run already put into the dataset.
//
// Each label is keyed by its archive-relative path with the image extension
// appended. The key is resolved to a flat image name through the persisted
// mapping, and the partition is recovered by probing images/train and then
// images/valid. The recorded split decision is never consulted, so placement
// and association may run separately and repeatedly.
//
// Every label is an isolated unit: lookup misses, orphaned labels, and copy
// failures are tallied and never abort the remaining labels.
package associate
