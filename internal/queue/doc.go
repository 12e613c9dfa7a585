// Package queue persists job items in SQLite and exposes the ordered work
// queue the workflow manager drains: one row per source video moving through
// download, transform, and upload.
package queue
