// Package flatten converts hierarchical object-store keys into flat,
// filesystem-safe file names.
//
// The conversion is a pure function of its input: equal keys always yield
// equal names, so placement and label association can derive the same name
// independently across separate runs. Injectivity is not guaranteed for keys
// that differ only in case or separator style; callers that need uniqueness
// detect collisions through the mapping store.
package flatten
