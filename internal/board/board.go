// Package board turns a project's tasks into the three status columns of a
// kanban board and applies drag-and-drop results to them.
//
// The board reads from a snapshot of the entity store's task list. A card
// dragged to another column is shown there at once through a pending
// overlay while the status change is written; the overlay entry is dropped
// if the write fails, and the whole overlay is discarded on every reseed so
// the entity store's copy always wins. Reordering inside a column is kept
// only in the snapshot and disappears on the next reseed.
package board

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/models"
)

// EntityStore is the part of the entity service the board uses.
type EntityStore interface {
	ProjectTasks(projectID string) []models.Task
	CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) error
}

// Column is one status lane.
type Column struct {
	Status models.Status
	Title  string
	Tasks  []models.Task
	Count  int
}

// Location is a card position: its column and index within the column.
type Location struct {
	Column models.Status
	Index  int
}

// DropResult describes a finished drag. A nil Destination means the card
// was dropped outside any column.
type DropResult struct {
	TaskID      string
	Source      Location
	Destination *Location
}

// Outcome reports what Drop did.
type Outcome int

const (
	OutcomeCancelled Outcome = iota
	OutcomeNoop
	OutcomeReordered
	OutcomeMoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeNoop:
		return "noop"
	case OutcomeReordered:
		return "reordered"
	case OutcomeMoved:
		return "moved"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// TaskForm is what the add-task dialog collects; the status comes from the
// column the task is added to.
type TaskForm struct {
	Title       string
	Description string
	Priority    models.Priority
	DueDate     string
}

type Board struct {
	entities EntityStore
	logger   logging.Logger

	mu        sync.Mutex
	projectID string
	snapshot  []models.Task
	pending   map[string]models.Status
}

func New(entities EntityStore, logger logging.Logger) *Board {
	return &Board{
		entities: entities,
		logger:   logger.With("module", "board"),
		pending:  make(map[string]models.Status),
	}
}

// SetProject shows projectID, reseeding when it differs from the current one.
func (b *Board) SetProject(projectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if projectID == b.projectID {
		return
	}
	b.projectID = projectID
	b.reseedLocked()
}

func (b *Board) ProjectID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projectID
}

// Reseed reloads the snapshot from the entity store and clears the overlay.
func (b *Board) Reseed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reseedLocked()
}

func (b *Board) reseedLocked() {
	clear(b.pending)
	if b.projectID == "" {
		b.snapshot = nil
		return
	}
	b.snapshot = b.entities.ProjectTasks(b.projectID)
}

// Tasks returns the board's tasks in list order with the overlay applied.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tasksLocked()
}

func (b *Board) tasksLocked() []models.Task {
	out := slices.Clone(b.snapshot)
	for i := range out {
		if s, ok := b.pending[out[i].ID]; ok {
			out[i].Status = s
		}
	}
	return out
}

// Columns returns the three lanes in board order.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := b.tasksLocked()
	cols := make([]Column, 0, len(models.Statuses))
	for _, s := range models.Statuses {
		cols = append(cols, buildColumn(s, tasks))
	}
	return cols
}

// Column returns a single lane.
func (b *Board) Column(status models.Status) (Column, error) {
	if !status.Valid() {
		return Column{}, fmt.Errorf("%w: %q", common.ErrUnknownColumn, status)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return buildColumn(status, b.tasksLocked()), nil
}

func buildColumn(status models.Status, tasks []models.Task) Column {
	c := Column{Status: status, Title: status.Title(), Tasks: []models.Task{}}
	for _, t := range tasks {
		if t.Status == status {
			c.Tasks = append(c.Tasks, t)
		}
	}
	c.Count = len(c.Tasks)
	return c
}

// Locate finds the card's current column and index.
func (b *Board) Locate(taskID string) (Location, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return locate(b.tasksLocked(), taskID)
}

func locate(tasks []models.Task, taskID string) (Location, bool) {
	idx := make(map[models.Status]int)
	for _, t := range tasks {
		if t.ID == taskID {
			return Location{Column: t.Status, Index: idx[t.Status]}, true
		}
		idx[t.Status]++
	}
	return Location{}, false
}

// Drop applies a finished drag.
//
// A drop outside the board, or back onto the spot it came from, does
// nothing. A drop elsewhere in the same column reorders the snapshot only.
// A drop into another column makes that column the task's status: the
// overlay shows the move at once and the status is written to the entity
// store; if the write fails the overlay entry is reverted and the error
// returned.
func (b *Board) Drop(ctx context.Context, res DropResult) (Outcome, error) {
	if res.Destination == nil {
		return OutcomeCancelled, nil
	}
	dst := *res.Destination
	if !dst.Column.Valid() {
		return OutcomeCancelled, fmt.Errorf("%w: %q", common.ErrUnknownColumn, dst.Column)
	}
	if dst == res.Source {
		return OutcomeNoop, nil
	}

	b.mu.Lock()
	cur, ok := locate(b.tasksLocked(), res.TaskID)
	if !ok {
		b.mu.Unlock()
		return OutcomeCancelled, fmt.Errorf("task %s is not on the board: %w", res.TaskID, common.ErrNotFound)
	}

	if dst.Column == cur.Column {
		b.reorderLocked(cur, dst.Index)
		b.mu.Unlock()
		return OutcomeReordered, nil
	}

	prev, hadPrev := b.pending[res.TaskID]
	b.pending[res.TaskID] = dst.Column
	b.mu.Unlock()

	status := dst.Column
	if err := b.entities.UpdateTask(ctx, res.TaskID, models.TaskPatch{Status: &status}); err != nil {
		b.mu.Lock()
		if b.pending[res.TaskID] == dst.Column {
			if hadPrev {
				b.pending[res.TaskID] = prev
			} else {
				delete(b.pending, res.TaskID)
			}
		}
		b.mu.Unlock()
		b.logger.Warn(ctx, "status change reverted", "task", res.TaskID, "to", string(status), "error", err)
		return OutcomeMoved, fmt.Errorf("failed to move task %s: %w", res.TaskID, err)
	}

	b.logger.Debug(ctx, "task moved", "task", res.TaskID, "from", string(cur.Column), "to", string(status))
	return OutcomeMoved, nil
}

// reorderLocked moves the card at from to index to within its column. Only
// the snapshot slots that hold that column's cards are rewritten.
func (b *Board) reorderLocked(from Location, to int) {
	tasks := b.tasksLocked()

	var slots []int
	for i, t := range tasks {
		if t.Status == from.Column {
			slots = append(slots, i)
		}
	}
	to = max(0, min(to, len(slots)-1))
	if to == from.Index {
		return
	}

	lane := make([]models.Task, len(slots))
	for i, s := range slots {
		lane[i] = b.snapshot[s]
	}
	moved := lane[from.Index]
	lane = slices.Delete(lane, from.Index, from.Index+1)
	lane = slices.Insert(lane, to, moved)

	for i, s := range slots {
		b.snapshot[s] = lane[i]
	}
}

// AddTask creates a task in the open project under the given column, then
// reseeds.
func (b *Board) AddTask(ctx context.Context, status models.Status, form TaskForm) (models.Task, error) {
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("%w: %q", common.ErrUnknownColumn, status)
	}

	projectID := b.ProjectID()
	if projectID == "" {
		return models.Task{}, fmt.Errorf("no project open: %w", common.ErrNotFound)
	}

	task, err := b.entities.CreateTask(ctx, models.TaskDraft{
		ProjectID:   projectID,
		Title:       form.Title,
		Description: form.Description,
		Status:      status,
		Priority:    form.Priority,
		DueDate:     form.DueDate,
	})
	if err != nil {
		return models.Task{}, err
	}

	b.Reseed()
	return task, nil
}
