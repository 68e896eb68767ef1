// Package downloader fetches artifacts over HTTP, verifies their checksums
// and promotes them atomically over the destination path via go-update.
package downloader
