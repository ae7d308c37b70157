package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/homeboard/internal/models"
	"github.com/desertthunder/homeboard/internal/tasks"
	"github.com/desertthunder/homeboard/internal/ui"
)

// PhotosPick runs the interactive picker: create a session, wait for the selection, then sync.
func (r *Runner) PhotosPick(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logs would tear the TUI, so they go to a file in the data directory.
	if err := os.MkdirAll(config.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logPath := filepath.Join(config.Storage.DataDir, "picker.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()
	r.logger.SetOutput(logFile)
	defer r.logger.SetOutput(os.Stderr)

	progress := make(chan tasks.ProgressUpdate, 16)
	a, err := r.open(ctx, config, withSyncProgress(progress))
	if err != nil {
		return err
	}
	defer a.close()

	model := ui.NewModel(ctx, ui.Opts{Picker: a.deps.Picker, Progress: progress})
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running picker: %w", err)
	}

	if err := model.Err(); err != nil {
		return err
	}
	if result := model.Result(); result != nil {
		return r.writeSyncState(result, a.deps.Picker.Dir())
	}
	return nil
}

// PhotosSync downloads the last completed selection without opening the picker.
func (r *Runner) PhotosSync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	state, err := a.deps.Picker.SyncSelectedMedia(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(state, true)
	}
	return r.writeSyncState(state, a.deps.Picker.Dir())
}

func (r *Runner) writeSyncState(state *models.SyncState, dir string) error {
	r.writePlainHeader("Photo Sync")
	r.writePlain("Directory:       %s\n", dir)
	r.writePlain("Downloaded:      %d\n", state.Downloaded)
	r.writePlain("Already present: %d\n", state.Skipped)
	r.writePlain("Removed:         %d\n", state.Removed)
	if state.Failed > 0 {
		r.writePlain("Failed:          %d (see log)\n", state.Failed)
	}
	return nil
}
