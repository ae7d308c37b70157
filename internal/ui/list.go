package ui

import (
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = photoItem{}

// photoItem wraps a synced file name to implement [list.Item].
type photoItem struct {
	name string
}

func (i photoItem) FilterValue() string { return i.name }
func (i photoItem) Title() string       { return i.name }
func (i photoItem) Description() string { return "/photos/" + i.name }

func photoItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, name := range names {
		items[i] = photoItem{name: name}
	}
	return items
}
