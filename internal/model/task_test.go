package model

import (
	"testing"
)

func TestProgressTick_ETAString(t *testing.T) {
	tests := []struct {
		etaSec   int
		expected string
	}{
		{-1, "—"},
		{0, "—"},
		{30, "00:30"},
		{90, "01:30"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{7323, "02:02:03"},
	}

	for _, test := range tests {
		tick := ProgressTick{ETASec: test.etaSec}
		result := tick.ETAString()
		if result != test.expected {
			t.Errorf("ETAString() with ETASec=%d = %s, expected %s", test.etaSec, result, test.expected)
		}
	}
}

func TestDownloadJob_DisplayTitle(t *testing.T) {
	tests := []struct {
		title    string
		output   string
		url      string
		expected string
	}{
		{"Video Title", "", "https://youtube.com/watch?v=123", "Video Title"},
		{"", "", "https://youtube.com/watch?v=123", "https://youtube.com/watch?v=123"},
		{"", "/tmp/job-1/My_Clip.mp4", "https://youtube.com/watch?v=456", "My_Clip"},
		{"https://example.com/x", "", "https://example.com/x", "https://example.com/x"},
	}

	for _, test := range tests {
		job := &DownloadJob{
			Title:      test.title,
			OutputPath: test.output,
			URL:        test.url,
		}
		result := job.DisplayTitle()
		if result != test.expected {
			t.Errorf("DisplayTitle() with title='%s', output='%s' = '%s', expected '%s'",
				test.title, test.output, result, test.expected)
		}
	}
}

func TestSession_Option(t *testing.T) {
	s := &Session{Catalog: &Catalog{Options: []FormatOption{
		{Kind: FormatVideo, Label: "360p"},
		{Kind: FormatAudio, Label: "Audio"},
	}}}

	if opt, ok := s.Option(1); !ok || opt.Kind != FormatAudio {
		t.Errorf("Option(1) = %+v, %v", opt, ok)
	}
	if _, ok := s.Option(2); ok {
		t.Error("Option(2) should be out of range")
	}
	if _, ok := (&Session{}).Option(0); ok {
		t.Error("Option on a session without catalog should fail")
	}
}
