// Package watch polls a channel for new uploads and enqueues matches.
//
// Each cycle lists the channel's uploads, probes metadata for videos it has
// not examined before, applies the configured keyword and duration filters,
// and enqueues up to the per-cycle quota. Examined video IDs are persisted to
// a JSON state file immediately, so a restart never re-enqueues or re-filters
// the same upload.
package watch
