package progress

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/tg-downloader/internal/model"
)

type recordingEditor struct {
	mu       sync.Mutex
	texts    []string
	inFlight int
	overlap  bool
	err      error
}

func (e *recordingEditor) EditText(_ context.Context, _ model.MessageRef, text string) error {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > 1 {
		e.overlap = true
	}
	e.texts = append(e.texts, text)
	e.mu.Unlock()

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
	return e.err
}

func (e *recordingEditor) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

var percentRe = regexp.MustCompile(`(\d+\.\d)%`)

func percents(texts []string) []float64 {
	var out []float64
	for _, t := range texts {
		if m := percentRe.FindStringSubmatch(t); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			out = append(out, v)
		}
	}
	return out
}

func downloading(pct float64) model.ProgressTick {
	return model.ProgressTick{Status: model.TickDownloading, Percent: pct, ETASec: -1}
}

func runReporter(t *testing.T, editor Editor, ticks []model.ProgressTick) *Reporter {
	t.Helper()
	r := NewReporter(editor, model.MessageRef{ChatID: 1, MessageID: 2}, "", 0)
	r.Start(context.Background())
	for _, tick := range ticks {
		r.Submit(tick)
	}
	r.Close()
	return r
}

func TestReporter_PercentagesNonDecreasing(t *testing.T) {
	editor := &recordingEditor{}
	runReporter(t, editor, []model.ProgressTick{
		downloading(10), downloading(35), downloading(20), downloading(0), downloading(60),
	})

	got := percents(editor.snapshot())
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1], "sequence %v", got)
	}
}

func TestReporter_FinishedRenderedOnce(t *testing.T) {
	editor := &recordingEditor{}
	r := runReporter(t, editor, []model.ProgressTick{
		downloading(50),
		{Status: model.TickFinished},
		downloading(10),
		{Status: model.TickFinished},
	})

	texts := editor.snapshot()
	finished := 0
	for _, text := range texts {
		if text == FinishedText {
			finished++
		}
	}
	assert.Equal(t, 1, finished)
	assert.Equal(t, FinishedText, texts[len(texts)-1])
	assert.Equal(t, 100.0, r.Percent())
}

func TestReporter_SkipsDuplicateText(t *testing.T) {
	editor := &recordingEditor{}
	runReporter(t, editor, []model.ProgressTick{downloading(40), downloading(40), downloading(40)})

	assert.Len(t, editor.snapshot(), 1)
}

func TestReporter_SwallowsEditErrors(t *testing.T) {
	editor := &recordingEditor{err: errors.New("message to edit not found")}
	r := runReporter(t, editor, []model.ProgressTick{downloading(10), downloading(20), {Status: model.TickFinished}})

	assert.Len(t, editor.snapshot(), 3)
	assert.Equal(t, 100.0, r.Percent())
}

func TestReporter_Throttles(t *testing.T) {
	editor := &recordingEditor{}
	r := NewReporter(editor, model.MessageRef{ChatID: 1, MessageID: 2}, "", 1<<40)
	r.Start(context.Background())
	for i := 1; i <= 5; i++ {
		r.Submit(downloading(float64(i * 10)))
	}
	r.Submit(model.ProgressTick{Status: model.TickFinished})
	r.Close()

	texts := editor.snapshot()
	require.Len(t, texts, 2)
	assert.Equal(t, FinishedText, texts[1])
}

func TestReporter_NoConcurrentEdits(t *testing.T) {
	editor := &recordingEditor{}
	r := NewReporter(editor, model.MessageRef{ChatID: 1, MessageID: 2}, "", 0)
	r.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Submit(downloading(float64(i)))
		}(i)
	}
	wg.Wait()
	r.Close()

	assert.False(t, editor.overlap)
}

func TestReporter_SubmitAfterClose(t *testing.T) {
	editor := &recordingEditor{}
	r := runReporter(t, editor, nil)

	r.Submit(downloading(10))
	r.Submit(model.ProgressTick{Status: model.TickFinished})
	r.Close()

	assert.Empty(t, editor.snapshot())
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		percent  float64
		expected string
	}{
		{0, "[□□□□□□□□□□]"},
		{9.9, "[□□□□□□□□□□]"},
		{10, "[■□□□□□□□□□]"},
		{55, "[■■■■■□□□□□]"},
		{100, "[■■■■■■■■■■]"},
		{150, "[■■■■■■■■■■]"},
		{-5, "[□□□□□□□□□□]"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, RenderBar(test.percent), "percent %v", test.percent)
	}
}

func TestRender(t *testing.T) {
	text := Render(DownloadingHeader, 42, model.ProgressTick{Rate: 1536 * 1024, ETASec: 30})

	assert.Equal(t, "⬇️ Downloading...\n[■■■■□□□□□□] 42.0%\nSpeed: 1.5 MiB/s\nETA: 00:30", text)
	assert.Contains(t, Render(DownloadingHeader, 0, model.ProgressTick{ETASec: -1}), "Speed: N/A")
}

func TestReporter_NoMessageNoEdits(t *testing.T) {
	editor := &recordingEditor{}
	r := NewReporter(editor, model.MessageRef{}, "", 0)
	r.Start(context.Background())
	r.Submit(downloading(50))
	r.Submit(model.ProgressTick{Status: model.TickFinished})
	r.Close()

	assert.Empty(t, editor.snapshot())
	assert.Equal(t, 100.0, r.Percent())
}
