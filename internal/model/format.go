package model

// FormatKind is the delivery flavour of a menu entry
type FormatKind string

const (
	FormatVideo FormatKind = "video"
	FormatAudio FormatKind = "audio"
	FormatBest  FormatKind = "best"
)

// Selector is an opaque instruction for the extraction engine. It is built by
// the catalog and handed back to the engine verbatim.
type Selector string

// String returns the raw selector text
func (s Selector) String() string {
	return string(s)
}

// FormatOption is a renderable menu entry
type FormatOption struct {
	Kind       FormatKind
	Label      string
	Resolution string // video only
	Selector   Selector
	Ext        string // expected container, empty when unknown
}

// FormatDescriptor describes one stream reported by a probe
type FormatDescriptor struct {
	ID         string
	Resolution string
	Height     int
	Ext        string
	VideoCodec string
	AudioCodec string
	FileSize   int64
}

// HasResolution reports whether the descriptor carries a usable video resolution
func (f FormatDescriptor) HasResolution() bool {
	switch f.Resolution {
	case "", "N/A", "audio only":
		return false
	}
	return true
}

// HasAudio reports whether the stream carries an audio track
func (f FormatDescriptor) HasAudio() bool {
	return f.AudioCodec != "" && f.AudioCodec != "none"
}

// ProbeResult is the metadata-only answer of the extraction engine
type ProbeResult struct {
	ID              string
	Title           string
	DurationSeconds int
	Uploader        string
	IsPlaylist      bool
	PlaylistCount   int
	Formats         []FormatDescriptor
}
