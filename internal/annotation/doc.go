// Package annotation reads CVAT image annotation exports and decides which
// images qualify for detector training.
//
// An image qualifies when it carries at least one bounding box, or when it
// was explicitly tagged as confirmed empty of target objects. Selection runs
// per document; Set unions results across documents.
package annotation
