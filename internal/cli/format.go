package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/board"
	"github.com/dmitrijs2005/taskboard/internal/models"
)

const (
	dueLayout     = "Jan 2"
	createdLayout = "Jan 2, 2006"
)

// formatDue renders a YYYY-MM-DD due date as "Jan 2". Anything unparsable
// is shown verbatim.
func formatDue(s string) string {
	if s == "" {
		return ""
	}
	d, err := time.Parse(models.DueDateLayout, s)
	if err != nil {
		return s
	}
	return d.Format(dueLayout)
}

func formatCreated(t time.Time) string {
	return t.Local().Format(createdLayout)
}

func taskLine(i int, t models.Task) string {
	s := fmt.Sprintf("  [%d] %s  %s  (%s)", i, t.ID, t.Title, t.Priority)
	if t.DueDate != "" {
		s += "  due " + formatDue(t.DueDate)
	}
	return s
}

func printBoard(w io.Writer, title string, cols []board.Column) {
	fmt.Fprintf(w, "# %s\n", title)
	for _, c := range cols {
		fmt.Fprintf(w, "== %s (%d) ==\n", c.Title, c.Count)
		for i, t := range c.Tasks {
			fmt.Fprintln(w, taskLine(i, t))
		}
	}
}
