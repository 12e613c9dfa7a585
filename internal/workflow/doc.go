// Package workflow drives queue items through the fetch, transform, and
// publish stages.
//
// A single worker goroutine drains the queue in position order, so at most one
// item is in flight at a time. Each stage persists the item before and after
// it runs, which lets an interrupted daemon resume mid-chain: items stuck in a
// processing status are reset to the preceding resting status on startup.
//
// The manager supports operator pause (finishes the in-flight item, never
// cancels it) and auto-pause after a configured number of completed uploads.
// Stopping the manager cancels the in-flight stage.
package workflow
