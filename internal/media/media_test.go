package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateOutputPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/video.mp4", "/path/to/video-faststart.mp4"},
		{"video.mkv", "video-faststart.mkv"},
		{"/no/ext/file", "/no/ext/file-faststart"},
	}

	for _, test := range tests {
		result := generateOutputPath(test.input)
		if result != test.expected {
			t.Errorf("generateOutputPath(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestBuildFastStartArgs(t *testing.T) {
	args := BuildFastStartArgs("/in.mp4", "/out.mp4")
	expected := []string{"-y", "-i", "/in.mp4", "-c", "copy", "-movflags", FastStartFlag, "/out.mp4"}

	if len(args) != len(expected) {
		t.Fatalf("Expected %d args, got %d", len(expected), len(args))
	}
	for i := range expected {
		if args[i] != expected[i] {
			t.Errorf("Arg %d: expected %s, got %s", i, expected[i], args[i])
		}
	}
}

func TestBuildFFprobeArgs(t *testing.T) {
	args := BuildFFprobeArgs("/a.mp4")
	if args[len(args)-1] != "/a.mp4" {
		t.Errorf("Expected path as last arg, got %v", args)
	}
	if args[len(args)-2] != FFprobeOutputFormat {
		t.Errorf("Expected json output format, got %v", args)
	}
}

func TestParseFFprobe(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720}
		],
		"format": {"duration": "61.6"}
	}`)

	info, err := ParseFFprobe(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.DurationSeconds != 62 {
		t.Errorf("Expected duration 62, got %d", info.DurationSeconds)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", info.Width, info.Height)
	}
}

func TestParseFFprobe_AudioOnly(t *testing.T) {
	info, err := ParseFFprobe([]byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"10"}}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Width != 0 || info.Height != 0 || info.DurationSeconds != 10 {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestParseFFprobe_Invalid(t *testing.T) {
	if _, err := ParseFFprobe([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
	if _, err := ParseFFprobe([]byte(`{"format":{"duration":"abc"}}`)); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestInspector_MissingBinary(t *testing.T) {
	i := &Inspector{ffmpeg: "definitely-not-ffmpeg-xyz", ffprobe: "definitely-not-ffprobe-xyz"}
	if i.Available() {
		t.Error("Expected unavailable inspector")
	}

	path := filepath.Join(t.TempDir(), "v.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := i.Inspect(context.Background(), path); err == nil {
		t.Error("Expected error from missing ffprobe")
	}
	if _, err := i.FastStart(context.Background(), path); err == nil {
		t.Error("Expected error from missing ffmpeg")
	}
	if _, err := os.Stat(generateOutputPath(path)); !os.IsNotExist(err) {
		t.Error("Expected temporary output to be absent")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "data" {
		t.Error("Expected original file untouched")
	}
}
