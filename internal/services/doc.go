// Package services holds cross-cutting service plumbing: the error taxonomy
// shared by stages and the upload engine, and context annotation helpers used
// for structured logging.
package services
