// Package core turns sources into viewable catalogs.
//
// This package holds the viewer's logic independent of the web layer. It can
// be used by HTTP handlers, CLI tools, or tests without modification.
//
// # Architecture
//
//   - Service: the entry point. Every load (file, upload, PostgreSQL, MySQL)
//     decodes through the source registry, builds a catalog.Catalog, and is
//     recorded as a Session.
//   - Sessions: bounded and addressed by uuid. A failed load produces a
//     session with the empty catalog and the error, never a partial catalog.
//   - Cache: file and upload loads go through a catalog.Cache keyed by source
//     identity, so an unchanged source is decoded once.
//   - LoadLimiter: a semaphore bounding concurrent decodes.
//   - BuildView: the selection policy applied to each viewer request.
//
// # Selection
//
//	v := core.BuildView(sess.Catalog, query, selected)
//	if !v.HasSelection {
//	    // v.Warning == core.NoMatchWarning
//	}
//
// A selected name missing from the filtered list falls back to the first
// filtered dataset.
//
// # Error Handling
//
// Technical errors are mapped to user messages with support codes by
// [MapError]. See error_messages.go for the code reference.
package core
