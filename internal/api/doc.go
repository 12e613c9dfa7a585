// Package api defines the wire-level views shared between the daemon's IPC
// surface and the CLI. Conversions here keep queue, workflow, and watch
// internals off the wire so the socket protocol stays stable.
package api
