package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/tg-downloader/internal/engine"
	"github.com/ytget/tg-downloader/internal/gateway"
	"github.com/ytget/tg-downloader/internal/history"
	"github.com/ytget/tg-downloader/internal/media"
	"github.com/ytget/tg-downloader/internal/model"
	"github.com/ytget/tg-downloader/internal/platform"
	"github.com/ytget/tg-downloader/internal/progress"
)

// Defaults
const (
	DefaultMaxParallel   = 3
	DefaultMaxUploadSize = 50 << 20
	DefaultAudioFormat   = "mp3"
	RecordTimeout        = 5 * time.Second
	JobIDPrefix          = "job-"
	FastStartExtension   = ".mp4"
)

// Options configures the service
type Options struct {
	TempDir          string
	MaxUploadSize    int64
	MaxParallel      int
	ProgressInterval time.Duration
	AudioFormat      string
}

// Request starts one job
type Request struct {
	JobID       string // optional, generated when empty
	SessionID   string
	RequesterID int64
	ChatID      int64
	URL         string
	Option      model.FormatOption
	Catalog     *model.Catalog // nil makes the job probe first
}

// Service runs download jobs
type Service struct {
	engine    engine.Engine
	messenger Messenger
	prober    media.Prober
	recorder  history.Recorder
	releaser  Releaser
	opts      Options

	slots     chan struct{}
	jobs      map[string]*model.DownloadJob
	jobsMutex sync.RWMutex
	onUpdate  func(model.DownloadJob) // callback for state changes
	wg        sync.WaitGroup
	ctx       context.Context // jobs are never cancelled; shutdown waits for them
	now       func() time.Time
}

// NewService creates a new download service
func NewService(eng engine.Engine, messenger Messenger, opts Options) *Service {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = DefaultAudioFormat
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Service{
		engine:    eng,
		messenger: messenger,
		recorder:  history.Nop{},
		opts:      opts,
		slots:     make(chan struct{}, opts.MaxParallel),
		jobs:      make(map[string]*model.DownloadJob),
		ctx:       context.Background(),
		now:       time.Now,
	}
}

// SetUpdateCallback sets the callback function for job updates
func (s *Service) SetUpdateCallback(callback func(model.DownloadJob)) {
	s.onUpdate = callback
}

// SetProber enables ffprobe metadata and faststart remuxing
func (s *Service) SetProber(prober media.Prober) {
	s.prober = prober
}

// SetRecorder sets the ledger terminal jobs are written to
func (s *Service) SetRecorder(recorder history.Recorder) {
	if recorder == nil {
		recorder = history.Nop{}
	}
	s.recorder = recorder
}

// SetReleaser sets who gets told when a job's session is finished
func (s *Service) SetReleaser(releaser Releaser) {
	s.releaser = releaser
}

// MaxUploadSize returns the configured upload ceiling
func (s *Service) MaxUploadSize() int64 {
	return s.opts.MaxUploadSize
}

// Start registers a job and runs it on its own goroutine
func (s *Service) Start(req Request) (model.DownloadJob, error) {
	if req.URL == "" {
		return model.DownloadJob{}, model.NewJobError(model.ErrInvalidInput, errors.New("empty url"))
	}
	if req.Option.Selector == "" {
		return model.DownloadJob{}, model.NewJobError(model.ErrInvalidInput, errors.New("empty format selector"))
	}

	job := &model.DownloadJob{
		ID:          req.JobID,
		SessionID:   req.SessionID,
		RequesterID: req.RequesterID,
		ChatID:      req.ChatID,
		URL:         req.URL,
		Option:      req.Option,
		Catalog:     req.Catalog,
		State:       model.JobStateCreated,
		CreatedAt:   s.now(),
	}
	if job.ID == "" {
		job.ID = NewJobID()
	}
	if req.Catalog != nil {
		job.Title = req.Catalog.Title
		job.Uploader = req.Catalog.Uploader
	}

	s.jobsMutex.Lock()
	if _, exists := s.jobs[job.ID]; exists {
		s.jobsMutex.Unlock()
		return model.DownloadJob{}, fmt.Errorf("job already exists: %s", job.ID)
	}
	s.jobs[job.ID] = job
	snapshot := *job
	s.jobsMutex.Unlock()

	s.wg.Add(1)
	go s.run(job)

	return snapshot, nil
}

// GetJob returns a copy of a running job
func (s *Service) GetJob(id string) (model.DownloadJob, bool) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return model.DownloadJob{}, false
	}
	return *job, true
}

// ActiveJobs returns copies of all jobs that have not been torn down yet
func (s *Service) ActiveJobs() []model.DownloadJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]model.DownloadJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// Shutdown waits for running jobs until ctx is done
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d job(s) still running: %w", len(s.ActiveJobs()), ctx.Err())
	}
}

// run drives one job to a terminal state. Teardown is deferred so it runs on
// every exit path, including panics.
func (s *Service) run(job *model.DownloadJob) {
	ctx := s.ctx
	var statusRef model.MessageRef

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in job %s: %v\n%s", job.ID, r, debug.Stack())
			kind := model.ErrEngineFailure
			if s.state(job) == model.JobStateUploading {
				kind = model.ErrDeliveryFailed
			}
			s.fail(ctx, job, statusRef, model.NewJobError(kind, fmt.Errorf("panic: %v", r)))
		}
		s.teardown(job)
	}()

	statusRef = s.acquireSlot(ctx, job)
	defer s.releaseSlot()

	if err := s.execute(ctx, job, statusRef); err != nil {
		s.fail(ctx, job, statusRef, err)
		return
	}
	s.complete(ctx, job, statusRef)
}

// acquireSlot posts the job's status message and blocks until a worker slot is free
func (s *Service) acquireSlot(ctx context.Context, job *model.DownloadJob) model.MessageRef {
	select {
	case s.slots <- struct{}{}:
		return s.sendStatus(ctx, job, StartingText)
	default:
	}

	ref := s.sendStatus(ctx, job, QueuedText)
	s.slots <- struct{}{}
	s.editStatus(ctx, ref, StartingText)
	return ref
}

func (s *Service) releaseSlot() {
	<-s.slots
}

// execute walks the forward states and returns a classified error on failure
func (s *Service) execute(ctx context.Context, job *model.DownloadJob, statusRef model.MessageRef) error {
	workDir, err := platform.NewWorkDir(s.opts.TempDir)
	if err != nil {
		return model.NewJobError(model.ErrEngineFailure, err)
	}
	s.update(job, func(j *model.DownloadJob) { j.WorkDir = workDir })

	if job.Catalog == nil {
		if err := s.probe(ctx, job, statusRef); err != nil {
			return err
		}
	}

	path, err := s.download(ctx, job, statusRef)
	if err != nil {
		return err
	}

	path = s.postProcess(ctx, job, path)

	size, err := s.validate(job, path)
	if err != nil {
		return err
	}

	s.transition(job, model.JobStateUploading)
	s.editStatus(ctx, statusRef, UploadingText)
	if err := s.upload(ctx, job, path, size); err != nil {
		return model.NewJobError(model.ErrDeliveryFailed, err)
	}
	return nil
}

// probe fetches metadata for jobs started without a menu
func (s *Service) probe(ctx context.Context, job *model.DownloadJob, statusRef model.MessageRef) error {
	s.transition(job, model.JobStateProbing)
	s.editStatus(ctx, statusRef, ProbingText)

	result, err := s.engine.Probe(ctx, job.URL)
	if err != nil {
		return model.AsJobError(err, model.ErrProbeFailed)
	}
	if result.IsPlaylist {
		return model.NewJobError(model.ErrUnsupportedContent, fmt.Errorf("playlist with %d entries", result.PlaylistCount))
	}

	s.update(job, func(j *model.DownloadJob) {
		j.Title = result.Title
		j.Uploader = result.Uploader
	})
	return nil
}

// download runs the engine while a reporter renders its ticks
func (s *Service) download(ctx context.Context, job *model.DownloadJob, statusRef model.MessageRef) (string, error) {
	s.transition(job, model.JobStateDownloading)

	audio := job.Option.Kind == model.FormatAudio
	header := progress.DownloadingHeader
	if audio {
		header = AudioHeader
		s.editStatus(ctx, statusRef, AudioHeader)
	}

	reporter := progress.NewReporter(s.messenger, statusRef, header, s.opts.ProgressInterval)
	reporter.Start(ctx)

	path, err := s.engine.Fetch(ctx, engine.FetchRequest{
		URL:          job.URL,
		Selector:     job.Option.Selector,
		ExtractAudio: audio,
		OutputDir:    job.WorkDir,
	}, reporter.Submit)

	reporter.Close()
	percent := reporter.Percent()
	s.update(job, func(j *model.DownloadJob) { j.Percent = percent })

	if err != nil {
		log.Printf("Download failed for job %s (%s): %v", job.ID, job.URL, err)
		if errors.Is(err, platform.ErrArtifactMissing) {
			return "", model.NewJobError(model.ErrArtifactMissing, err)
		}
		return "", model.AsJobError(err, model.ErrEngineFailure)
	}
	return path, nil
}

// postProcess fixes up the artifact path after the engine is done
func (s *Service) postProcess(ctx context.Context, job *model.DownloadJob, path string) string {
	s.transition(job, model.JobStatePostProcessing)

	if job.Option.Kind == model.FormatAudio {
		if ext, _ := engine.AudioExtension(s.opts.AudioFormat); ext != "" {
			path = platform.ReplaceExt(path, ext)
		}
	} else if s.prober != nil && strings.EqualFold(filepath.Ext(path), FastStartExtension) {
		if _, err := s.prober.FastStart(ctx, path); err != nil {
			log.Printf("Faststart remux skipped for job %s: %v", job.ID, err)
		}
	}

	s.update(job, func(j *model.DownloadJob) { j.OutputPath = path })
	return path
}

// validate applies the upload size policy, deleting oversized artifacts
func (s *Service) validate(job *model.DownloadJob, path string) (int64, error) {
	s.transition(job, model.JobStateValidating)

	verdict, err := platform.ValidateSize(path, s.opts.MaxUploadSize)
	if err != nil {
		if errors.Is(err, platform.ErrArtifactMissing) {
			return 0, model.NewJobError(model.ErrArtifactMissing, err)
		}
		return 0, model.NewJobError(model.ErrEngineFailure, err)
	}

	s.update(job, func(j *model.DownloadJob) { j.FileSize = verdict.Size })
	if !verdict.OK {
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete oversized artifact %s: %v", path, err)
		}
		je := model.NewJobError(model.ErrArtifactTooLarge,
			fmt.Errorf("%d bytes exceeds limit of %d bytes", verdict.Size, s.opts.MaxUploadSize))
		je.Size = verdict.Size
		return 0, je
	}
	return verdict.Size, nil
}

// upload hands the artifact to the messenger; the file handle is released when it returns
func (s *Service) upload(ctx context.Context, job *model.DownloadJob, path string, size int64) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	upload := gateway.Upload{
		Name:   filepath.Base(path),
		Reader: file,
		Size:   size,
	}
	var info media.Info
	if s.prober != nil {
		if info, err = s.prober.Inspect(ctx, path); err != nil {
			log.Printf("ffprobe failed for job %s: %v", job.ID, err)
		}
		upload.Duration = info.DurationSeconds
	}

	if job.Option.Kind == model.FormatAudio {
		upload.Caption = AudioCaption
		upload.Title = orDefault(job.Title, DefaultAudioTag)
		upload.Performer = orDefault(job.Uploader, DefaultArtist)
		return s.messenger.SendAudio(ctx, job.ChatID, upload)
	}

	upload.Caption = VideoCaption
	upload.Width = info.Width
	upload.Height = info.Height
	if info.Width > 0 && info.Height > 0 {
		upload.Caption = fmt.Sprintf("%s (%dx%d)", VideoCaption, info.Width, info.Height)
	}
	return s.messenger.SendVideo(ctx, job.ChatID, upload)
}

func (s *Service) complete(ctx context.Context, job *model.DownloadJob, statusRef model.MessageRef) {
	s.transition(job, model.JobStateCompleted)

	if !statusRef.IsZero() {
		if err := s.messenger.Delete(ctx, statusRef); err != nil {
			log.Printf("Failed to delete status message for job %s: %v", job.ID, err)
		}
	}
	if _, err := s.messenger.SendText(ctx, job.ChatID, DoneText); err != nil {
		log.Printf("Failed to send completion for job %s: %v", job.ID, err)
	}
	log.Printf("Job %s completed: %s (%d bytes)", job.ID, job.DisplayTitle(), job.FileSize)
}

// fail moves the job to Failed and shows exactly one failure message
func (s *Service) fail(ctx context.Context, job *model.DownloadJob, statusRef model.MessageRef, err error) {
	je := model.AsJobError(err, model.ErrEngineFailure)
	if !s.transitionFailed(job, je) {
		return
	}
	log.Printf("Job %s failed: %v", job.ID, je)

	text := FailureText(je, s.opts.MaxUploadSize)
	if !statusRef.IsZero() {
		if err := s.messenger.EditText(ctx, statusRef, text); err == nil {
			return
		}
	}
	if _, err := s.messenger.SendText(ctx, job.ChatID, text); err != nil {
		log.Printf("Failed to report failure for job %s: %v", job.ID, err)
	}
}

// teardown releases everything the job owned
func (s *Service) teardown(job *model.DownloadJob) {
	if err := platform.RemoveWorkDir(job.WorkDir); err != nil {
		log.Printf("Failed to clean up job %s: %v", job.ID, err)
	}
	if s.releaser != nil {
		s.releaser.Remove(job.SessionID)
	}

	s.jobsMutex.Lock()
	delete(s.jobs, job.ID)
	if !job.State.IsTerminal() {
		job.State = model.JobStateFailed
	}
	job.FinishedAt = s.now()
	snapshot := *job
	s.jobsMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), RecordTimeout)
	defer cancel()
	if err := s.recorder.Record(ctx, toRecord(snapshot)); err != nil {
		log.Printf("Failed to record job %s: %v", job.ID, err)
	}

	s.notifyUpdate(snapshot)
}

func (s *Service) sendStatus(ctx context.Context, job *model.DownloadJob, text string) model.MessageRef {
	ref, err := s.messenger.SendText(ctx, job.ChatID, text)
	if err != nil {
		log.Printf("Failed to send status for job %s: %v", job.ID, err)
	}
	return ref
}

func (s *Service) editStatus(ctx context.Context, ref model.MessageRef, text string) {
	if ref.IsZero() {
		return
	}
	if err := s.messenger.EditText(ctx, ref, text); err != nil {
		log.Printf("Failed to edit status message %d: %v", ref.MessageID, err)
	}
}

// transition moves the job forward; backward moves are logged and ignored
func (s *Service) transition(job *model.DownloadJob, next model.JobState) {
	s.jobsMutex.Lock()
	if !job.State.CanTransitionTo(next) {
		s.jobsMutex.Unlock()
		log.Printf("Job %s: illegal transition %s -> %s", job.ID, job.State, next)
		return
	}
	job.State = next
	snapshot := *job
	s.jobsMutex.Unlock()

	s.notifyUpdate(snapshot)
}

func (s *Service) transitionFailed(job *model.DownloadJob, je *model.JobError) bool {
	s.jobsMutex.Lock()
	if !job.State.CanTransitionTo(model.JobStateFailed) {
		s.jobsMutex.Unlock()
		return false
	}
	job.State = model.JobStateFailed
	job.Err = je
	snapshot := *job
	s.jobsMutex.Unlock()

	s.notifyUpdate(snapshot)
	return true
}

func (s *Service) state(job *model.DownloadJob) model.JobState {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()
	return job.State
}

func (s *Service) update(job *model.DownloadJob, fn func(*model.DownloadJob)) {
	s.jobsMutex.Lock()
	fn(job)
	s.jobsMutex.Unlock()
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(job model.DownloadJob) {
	if s.onUpdate != nil {
		s.onUpdate(job)
	}
}

func toRecord(job model.DownloadJob) history.Record {
	rec := history.Record{
		JobID:       job.ID,
		SessionID:   job.SessionID,
		RequesterID: job.RequesterID,
		URL:         job.URL,
		Kind:        string(job.Option.Kind),
		State:       job.State.String(),
		Bytes:       job.FileSize,
		CreatedAt:   job.CreatedAt,
		FinishedAt:  job.FinishedAt,
	}
	if job.Err != nil {
		rec.ErrorKind = string(job.Err.Kind)
		rec.Bytes = 0
	}
	return rec
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// NewJobID generates a unique job id using UUID v7 for time ordering
func NewJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}
