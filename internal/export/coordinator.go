package export

import (
	"fmt"
	"sync"
)

// Job lifecycle states. queued and running are live; the rest are final.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// Status is the externally visible snapshot of an export job.
type Status struct {
	JobID      string  `json:"job_id"`
	State      string  `json:"state"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
}

func terminal(state string) bool {
	return state == StateCompleted || state == StateFailed || state == StateCancelled
}

// Coordinator tracks the one active export job of a session and fans its
// status out to an observer. Updates carrying a stale job id (from a
// superseded job) are dropped, progress never regresses while running, and
// terminal states are final.
type Coordinator struct {
	mu     sync.Mutex
	active *Status
	notify func(Status)
}

// NewCoordinator builds a coordinator; notify may be nil.
func NewCoordinator(notify func(Status)) *Coordinator {
	return &Coordinator{notify: notify}
}

// Begin registers a new job in the queued state. It fails while another
// job is still live.
func (c *Coordinator) Begin(jobID string) error {
	c.mu.Lock()
	if c.active != nil && !terminal(c.active.State) {
		c.mu.Unlock()
		return fmt.Errorf("export %s still %s", c.active.JobID, c.active.State)
	}
	status := Status{JobID: jobID, State: StateQueued}
	c.active = &status
	c.mu.Unlock()

	c.emit(status)
	return nil
}

// Update applies a status event. Events for other job ids and events
// arriving after a terminal state are ignored; progress is clamped
// monotonic while running.
func (c *Coordinator) Update(s Status) {
	c.mu.Lock()
	if c.active == nil || c.active.JobID != s.JobID || terminal(c.active.State) {
		c.mu.Unlock()
		return
	}
	if s.Progress < c.active.Progress && s.State == StateRunning {
		s.Progress = c.active.Progress
	}
	if s.Progress > 1 {
		s.Progress = 1
	}
	*c.active = s
	snapshot := *c.active
	c.mu.Unlock()

	c.emit(snapshot)
}

// Running marks the job running with the given progress.
func (c *Coordinator) Running(jobID string, progress float64) {
	c.Update(Status{JobID: jobID, State: StateRunning, Progress: progress})
}

// Complete marks the job completed and records the output path.
func (c *Coordinator) Complete(jobID, outputPath string) {
	c.Update(Status{JobID: jobID, State: StateCompleted, Progress: 1, OutputPath: outputPath})
}

// Fail marks the job failed, retaining a display error and the progress
// reached so far.
func (c *Coordinator) Fail(jobID string, err error) {
	c.mu.Lock()
	progress := 0.0
	if c.active != nil && c.active.JobID == jobID {
		progress = c.active.Progress
	}
	c.mu.Unlock()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.Update(Status{JobID: jobID, State: StateFailed, Progress: progress, Error: msg})
}

// Cancel marks the job cancelled.
func (c *Coordinator) Cancel(jobID string) {
	c.mu.Lock()
	progress := 0.0
	if c.active != nil && c.active.JobID == jobID {
		progress = c.active.Progress
	}
	c.mu.Unlock()
	c.Update(Status{JobID: jobID, State: StateCancelled, Progress: progress})
}

// Active returns the current job snapshot, if any.
func (c *Coordinator) Active() (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Status{}, false
	}
	return *c.active, true
}

func (c *Coordinator) emit(s Status) {
	if c.notify != nil {
		c.notify(s)
	}
}
