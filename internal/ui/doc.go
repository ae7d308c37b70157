// Package ui implements the interactive photo picker flow using bubbletea's Elm architecture.
//
// The TUI walks through one Google Photos Picker session:
//  1. [SessionView] : create a session
//  2. [WaitView] : show the picker link and poll every [picker.PollInterval] until the
//     selection is complete or [picker.PollTimeout] passes
//  3. [SyncView] : download the selection into the photo directory, showing the latest
//     [tasks.ProgressUpdate] when [Opts.Progress] is set
//  4. [ResultView] : sync counts and the synced files in a scrollable list
//
// The [Model] implements bubbletea's Init/Update/View pattern. All provider calls run as
// tea.Cmd functions so the spinner keeps animating while they block.
//
// Keys: q quits from any view, r starts a new session from the result view.
package ui
