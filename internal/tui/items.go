package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

type taskItem struct{ task domain.Task }

func (i taskItem) Title() string { return i.task.Name }

func (i taskItem) Description() string {
	return fmt.Sprintf("%s · queue %s", i.task.JobDefinition, i.task.JobQueue)
}

func (i taskItem) FilterValue() string { return i.task.Name }

func taskItems(tasks []domain.Task) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return items
}

// sameTasks compares by id and name, which is all the list shows besides
// the job fields.
func sameTasks(a, b []domain.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name ||
			a[i].JobDefinition != b[i].JobDefinition || a[i].JobQueue != b[i].JobQueue {
			return false
		}
	}
	return true
}
