// Package dataset describes the on-disk layout of a YOLO training dataset and
// guards it against concurrent mutation.
//
// Partition membership of an image is never stored: it is whichever of
// images/train or images/valid holds the file. Probe answers that question
// from the filesystem so later stages can run without the split decision.
package dataset
