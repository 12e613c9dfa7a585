// Package fetch is the stage handler that downloads source videos with
// yt-dlp and fills in light metadata the enqueue left blank.
package fetch
