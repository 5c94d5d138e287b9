package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskboard/internal/board"
	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/models"
)

func (a *App) ShowBoard(ctx context.Context) error {
	p, ok := a.entities.Project(a.board.ProjectID())
	if !ok {
		return fmt.Errorf("open project: %w", common.ErrNotFound)
	}
	printBoard(a.out, p.Name, a.board.Columns())
	return nil
}

// Refresh reloads the board from the entity store, dropping unsaved moves.
func (a *App) Refresh(ctx context.Context) error {
	a.board.Reseed()
	return a.ShowBoard(ctx)
}

// AddTask prompts for the task fields and adds it to column.
func (a *App) AddTask(ctx context.Context, column string) error {
	status, err := models.ParseStatus(column)
	if err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	description, err := getMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	prio, err := getSimpleText(a.reader, "Priority (low, medium, high) [medium]", a.out)
	if err != nil {
		return err
	}
	if prio == "" {
		prio = string(models.PriorityMedium)
	}
	priority, err := models.ParsePriority(prio)
	if err != nil {
		return err
	}
	due, err := getSimpleText(a.reader, "Due date (YYYY-MM-DD, empty for none)", a.out)
	if err != nil {
		return err
	}

	t, err := a.board.AddTask(ctx, status, board.TaskForm{
		Title:       title,
		Description: description,
		Priority:    priority,
		DueDate:     due,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s to %s\n", t.ID, status.Title())
	return nil
}

// MoveTask drops the task on column at index. A negative index means the
// end of the column when moving across, or the current spot otherwise.
func (a *App) MoveTask(ctx context.Context, taskID, column string, index int) error {
	status, err := models.ParseStatus(column)
	if err != nil {
		return fmt.Errorf("%w: %q", common.ErrUnknownColumn, column)
	}
	src, ok := a.board.Locate(taskID)
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, common.ErrNotFound)
	}

	dst := board.Location{Column: status, Index: index}
	if index < 0 {
		if status == src.Column {
			dst.Index = src.Index
		} else {
			col, err := a.board.Column(status)
			if err != nil {
				return err
			}
			dst.Index = col.Count
		}
	}

	out, err := a.board.Drop(ctx, board.DropResult{TaskID: taskID, Source: src, Destination: &dst})
	if err != nil {
		return err
	}

	switch out {
	case board.OutcomeMoved:
		fmt.Fprintf(a.out, "Moved %s to %s\n", taskID, status.Title())
	case board.OutcomeReordered:
		fmt.Fprintln(a.out, "Reordered (not saved, reverts on refresh)")
	default:
		fmt.Fprintln(a.out, "Nothing to do")
	}
	return nil
}

// openTask looks a task up within the open project only.
func (a *App) openTask(taskID string) (models.Task, error) {
	t, ok := a.entities.Task(taskID)
	if !ok || t.ProjectID != a.board.ProjectID() {
		return models.Task{}, fmt.Errorf("task %s: %w", taskID, common.ErrNotFound)
	}
	return t, nil
}

// EditTask walks through the mutable fields; an empty answer keeps the
// current value and "-" clears the description or the due date.
func (a *App) EditTask(ctx context.Context, taskID string) error {
	t, err := a.openTask(taskID)
	if err != nil {
		return err
	}

	var patch models.TaskPatch

	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", t.Title), a.out)
	if err != nil {
		return err
	}
	if title != "" {
		patch.Title = &title
	}

	description, err := getSimpleText(a.reader, fmt.Sprintf("Description [%s] (- to clear)", t.Description), a.out)
	if err != nil {
		return err
	}
	switch description {
	case "":
	case "-":
		none := ""
		patch.Description = &none
	default:
		patch.Description = &description
	}

	s, err := getSimpleText(a.reader, fmt.Sprintf("Status [%s]", t.Status), a.out)
	if err != nil {
		return err
	}
	if s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			return err
		}
		patch.Status = &status
	}

	p, err := getSimpleText(a.reader, fmt.Sprintf("Priority [%s]", t.Priority), a.out)
	if err != nil {
		return err
	}
	if p != "" {
		priority, err := models.ParsePriority(p)
		if err != nil {
			return err
		}
		patch.Priority = &priority
	}

	due, err := getSimpleText(a.reader, fmt.Sprintf("Due date [%s] (- to clear)", t.DueDate), a.out)
	if err != nil {
		return err
	}
	switch due {
	case "":
	case "-":
		none := ""
		patch.DueDate = &none
	default:
		patch.DueDate = &due
	}

	if err := a.entities.UpdateTask(ctx, taskID, patch); err != nil {
		return err
	}
	a.board.Reseed()
	fmt.Fprintf(a.out, "Updated %s\n", taskID)
	return nil
}

func (a *App) DeleteTask(ctx context.Context, taskID string) error {
	t, err := a.openTask(taskID)
	if err != nil {
		return err
	}

	yes, err := confirm(a.reader, fmt.Sprintf("Delete task %q?", t.Title), a.out)
	if err != nil {
		return err
	}
	if !yes {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.entities.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	a.board.Reseed()
	fmt.Fprintf(a.out, "Deleted %s\n", t.Title)
	return nil
}
