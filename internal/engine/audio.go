package engine

import "strings"

// AudioFormatBest keeps whatever audio container the source provides
const AudioFormatBest = "best"

// audioContainers maps yt-dlp --audio-format codecs to the extension of the file they produce
var audioContainers = map[string]string{
	AudioFormatBest: "",
	"aac":           "m4a",
	"alac":          "m4a",
	"flac":          "flac",
	"m4a":           "m4a",
	"mp3":           "mp3",
	"opus":          "opus",
	"vorbis":        "ogg",
	"wav":           "wav",
}

// AudioExtension returns the file extension yt-dlp writes for an --audio-format value.
// The extension is empty for "best", and ok is false for codecs yt-dlp does not accept.
func AudioExtension(format string) (ext string, ok bool) {
	ext, ok = audioContainers[strings.ToLower(format)]
	return ext, ok
}

// AudioFormats lists the accepted --audio-format values
func AudioFormats() []string {
	return []string{"aac", "alac", AudioFormatBest, "flac", "m4a", "mp3", "opus", "vorbis", "wav"}
}
