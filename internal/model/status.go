package model

// JobState represents the current state of a download job
type JobState string

const (
	// JobStateCreated means the job exists but has not started working
	JobStateCreated JobState = "Created"

	// JobStateProbing means metadata is being fetched (jobs started without a catalog)
	JobStateProbing JobState = "Probing"

	// JobStateAwaitingSelection means the job waits for the requester to pick a format
	JobStateAwaitingSelection JobState = "AwaitingSelection"

	// JobStateDownloading means the engine is transferring media
	JobStateDownloading JobState = "Downloading"

	// JobStatePostProcessing means the artifact is being converted or renamed
	JobStatePostProcessing JobState = "PostProcessing"

	// JobStateValidating means the artifact is checked against the size policy
	JobStateValidating JobState = "Validating"

	// JobStateUploading means the artifact is handed to the messaging gateway
	JobStateUploading JobState = "Uploading"

	// JobStateCompleted means the artifact was delivered
	JobStateCompleted JobState = "Completed"

	// JobStateFailed means the job stopped with an error
	JobStateFailed JobState = "Failed"
)

var jobStateOrder = map[JobState]int{
	JobStateCreated:           0,
	JobStateProbing:           1,
	JobStateAwaitingSelection: 2,
	JobStateDownloading:       3,
	JobStatePostProcessing:    4,
	JobStateValidating:        5,
	JobStateUploading:         6,
	JobStateCompleted:         7,
	JobStateFailed:            7,
}

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// IsActive returns true while the job holds a worker
func (s JobState) IsActive() bool {
	switch s {
	case JobStateProbing, JobStateDownloading, JobStatePostProcessing, JobStateValidating, JobStateUploading:
		return true
	}
	return false
}

// IsTerminal returns true for Completed and Failed
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// CanTransitionTo reports whether moving from s to next keeps the job moving forward.
// Failed is reachable from any non-terminal state.
func (s JobState) CanTransitionTo(next JobState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStateFailed {
		return true
	}
	cur, ok1 := jobStateOrder[s]
	nxt, ok2 := jobStateOrder[next]
	return ok1 && ok2 && nxt > cur
}

// SessionState tags where a session is in its lifecycle
type SessionState string

const (
	SessionAwaitingSelection SessionState = "AwaitingSelection"
	SessionJobActive         SessionState = "JobActive"
	SessionTerminal          SessionState = "Terminal"
)

// String returns the string representation of SessionState
func (s SessionState) String() string {
	return string(s)
}
