// Package ledger tracks published content hashes so the pipeline can refuse
// to upload the same video twice.
package ledger
