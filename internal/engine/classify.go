package engine

import "strings"

// Hint maps an opaque engine error to a plain-language explanation. It returns
// an empty string when nothing more specific than a generic failure is known.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "sign in to confirm your age") || strings.Contains(msg, "age-restricted") || strings.Contains(msg, "age restricted"):
		return "This video is age-restricted."
	case strings.Contains(msg, "available in your country") || strings.Contains(msg, "geo restricted") || strings.Contains(msg, "geo-restrict"):
		return "This video is not available in the server's region."
	case strings.Contains(msg, "private video"):
		return "This video is private."
	case strings.Contains(msg, "unsupported url"):
		return "This site is not supported."
	case strings.Contains(msg, "video unavailable") || strings.Contains(msg, "has been removed"):
		return "This video is unavailable."
	case strings.Contains(msg, "http error 403") || strings.Contains(msg, "403: forbidden"):
		return "Access forbidden. The site might be throttling the server."
	case strings.Contains(msg, "requested format is not available"):
		return "The selected format is no longer offered."
	case strings.Contains(msg, "ffmpeg") || strings.Contains(msg, "postprocessing"):
		return "Media processing error."
	case strings.Contains(msg, "no space left"):
		return "The server ran out of disk space."
	}
	return ""
}
