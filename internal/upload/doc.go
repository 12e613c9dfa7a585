// Package upload owns the publishing policy: chunk sizing, retry with
// backoff, single forced re-authentication, metadata mapping, short-form
// badging, and the publish stage handler with its dedup check.
package upload
