// Package tube implements the destination platform's HTTP API: resumable
// chunked video uploads, OAuth token refresh, and best-effort post-publish
// calls (recording details, playlist inserts).
package tube
