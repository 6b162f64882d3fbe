package progress

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ytget/tg-downloader/internal/model"
)

// Text constants
const (
	DownloadingHeader = "⬇️ Downloading..."
	FinishedText      = "✅ Download complete!\n⏫ Uploading..."
	UnknownValue      = "N/A"

	BarSegments  = 10
	BarFilled    = "■"
	BarEmpty     = "□"
	PercentLabel = "%.1f%%"
)

// RenderBar draws a segment bar where each segment stands for 10%
func RenderBar(percent float64) string {
	filled := int(percent / (100 / BarSegments))
	if filled < 0 {
		filled = 0
	}
	if filled > BarSegments {
		filled = BarSegments
	}
	return "[" + strings.Repeat(BarFilled, filled) + strings.Repeat(BarEmpty, BarSegments-filled) + "]"
}

// RenderRate formats bytes per second
func RenderRate(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return UnknownValue
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// Render builds the progress message for a downloading tick
func Render(header string, percent float64, tick model.ProgressTick) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(RenderBar(percent))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf(PercentLabel, percent))
	b.WriteString("\nSpeed: ")
	b.WriteString(RenderRate(tick.Rate))
	b.WriteString("\nETA: ")
	b.WriteString(tick.ETAString())
	return b.String()
}
