// Package transform plans and runs ffmpeg invocations that prepare fetched
// videos for publishing: compatibility remux, trim, aspect crop or pad,
// loudness normalization, and watermark overlay.
package transform
