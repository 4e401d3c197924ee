// Package pipeline runs the three dataset preparation stages.
//
// Select downloads annotation archives and writes the list of images worth
// training on. Place splits that list into train and validation partitions,
// downloads the images under flattened names, and saves the identifier
// mapping. Organize joins exported label files to the placed images through
// the mapping and writes the manifest files a YOLO trainer reads.
//
// Every stage follows the same error policy. Configuration errors return
// before any unit is touched. Unit failures are logged, counted, and recorded
// in the run journal while the loop continues. Failing to write the final
// artifact is reported as ErrPersistence after all completed work is kept.
package pipeline
