// Package objectstore reads images and archives from the remote object store.
//
// Store is the narrow read-only surface the stages need: open an object by
// key and check whether one exists. Azure Blob Storage and Google Cloud
// Storage back production runs; the local backend maps containers to
// directories for tests and offline mirrors. Download writes through a
// ".part" file so an interrupted transfer never leaves a truncated file under
// its final name.
package objectstore
