package ui

import (
	"time"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/picker"
	"github.com/desertthunder/homeboard/internal/tasks"
)

type sessionCreatedMsg struct {
	session *models.PickerSession
	err     error
}

type pollTickMsg time.Time

type statusMsg struct {
	status *picker.Status
	err    error
}

type syncedMsg struct {
	state  *models.SyncState
	photos []string
	err    error
}

type progressMsg tasks.ProgressUpdate
