// Package ytdlp wraps the yt-dlp command line downloader for source video
// fetching, metadata probing, and channel listing.
package ytdlp
