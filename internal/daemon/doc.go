// Package daemon owns the long-running process: it wires the queue store,
// workflow manager, discovery poller, dedup ledger, and profile store together
// and exposes the operations the IPC surface calls. A file lock guarantees a
// single instance per data directory.
package daemon
