// Package profiles stores named publishing presets that pre-fill queue item
// options at enqueue time.
package profiles
