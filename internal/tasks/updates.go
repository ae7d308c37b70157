package tasks

import "fmt"

// ProgressUpdate represents a progress event during a batch.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Jobs finished so far
	Total   int    // Jobs in the batch
	Message string // Human-readable message for display
	Err     error  // Set when the job behind this update failed
}

// Done reports whether this update finished the batch.
func (u ProgressUpdate) Done() bool { return u.Total > 0 && u.Step >= u.Total }

// Phase names the kind of work a batch is doing.
type Phase int

const (
	Download Phase = iota
	Remove
	Export
)

func (p Phase) String() string {
	switch p {
	case Download:
		return "download"
	case Remove:
		return "remove"
	case Export:
		return "export"
	default:
		return ""
	}
}

func completedUpdate(phase Phase, step, total int, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s (%d/%d)", phase, label, step, total),
	}
}

func failedUpdate(phase Phase, step, total int, label string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s failed (%d/%d)", phase, label, step, total),
		Err:     err,
	}
}

// send delivers an update without blocking.
func send(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
