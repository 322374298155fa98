// Package catalog holds the in-memory collection of named tabular datasets
// derived from one loaded source.
//
// A [Catalog] is built exactly once by [Construct] from the raw value a
// loader produced, and is read-only from then on. It can be shared by any
// number of readers without locking.
//
// # Naming
//
// Each element of the raw value becomes a [Dataset]. Its display name is the
// element's "name" attribute when present and non-empty, otherwise a
// positional default:
//
//	DataFrame_1, DataFrame_2, ...
//
// Names are not required to be unique. [Catalog.Lookup] returns the first
// match in catalog order, so an explicit "DataFrame_2" shadows a later
// unnamed element at position 2.
//
// # Errors
//
// Construction fails with a [*LoadError] when the raw value is not an
// ordered collection or an element has no determinable shape. Callers fall
// back to [Empty] in that case. [Catalog.Lookup] reports [ErrNotFound] for
// stale names; [Catalog.Filter] never fails.
package catalog
