package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskboard/internal/common"
)

func (a *App) ListProjects(ctx context.Context) error {
	projects := a.entities.Projects()
	if len(projects) == 0 {
		fmt.Fprintln(a.out, "No projects yet. Create one with: newproject")
		return nil
	}
	for _, p := range projects {
		n := len(a.entities.ProjectTasks(p.ID))
		fmt.Fprintf(a.out, "%s  %s  (created %s, %d tasks)\n", p.ID, p.Name, formatCreated(p.CreatedAt), n)
	}
	return nil
}

func (a *App) NewProject(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Project name", a.out)
	if err != nil {
		return err
	}
	p, err := a.entities.CreateProject(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

// DeleteProject asks for confirmation, then removes the project and its
// tasks. An open board on that project is closed.
func (a *App) DeleteProject(ctx context.Context, id string) error {
	p, ok := a.entities.Project(id)
	if !ok {
		return fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	n := len(a.entities.ProjectTasks(id))

	yes, err := confirm(a.reader, fmt.Sprintf("Delete project %q and its %d tasks?", p.Name, n), a.out)
	if err != nil {
		return err
	}
	if !yes {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.entities.DeleteProject(ctx, id); err != nil {
		return err
	}
	if a.board.ProjectID() == id {
		a.board.SetProject("")
	}
	fmt.Fprintf(a.out, "Deleted project %s\n", p.Name)
	return nil
}

func (a *App) OpenProject(ctx context.Context, id string) error {
	if _, ok := a.entities.Project(id); !ok {
		return fmt.Errorf("project %s: %w", id, common.ErrNotFound)
	}
	a.board.SetProject(id)
	return a.ShowBoard(ctx)
}
