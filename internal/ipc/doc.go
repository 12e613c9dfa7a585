// Package ipc exposes the daemon's operations over a JSON-RPC unix socket
// and provides the typed client the CLI talks through.
package ipc
