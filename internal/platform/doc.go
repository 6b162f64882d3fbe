package platform

// Package platform contains OS/platform integration and external tooling glue:
// per-job working directories, artifact size policy and playlist inspection via
// the yt-dlp library.
