package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/taskboard/internal/board"
	"github.com/dmitrijs2005/taskboard/internal/config"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/models"
	"github.com/dmitrijs2005/taskboard/internal/services"
	"github.com/dmitrijs2005/taskboard/internal/storage"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    io.Closer
	session  services.SessionService
	entities services.EntityService
	board    *board.Board
	reader   *bufio.Reader
	out      io.Writer

	unsubscribe func()
}

// NewApp opens the store named by c, restores any persisted session and
// wires the services and board on top of it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}

	st, err := storage.Open(ctx, c.DatabaseDriver, dsn)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	session := services.NewSessionService(st, logger)
	if err := session.Restore(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	entities := services.NewEntityService(ctx, st, session, logger)

	a := newApp(session, entities, logger)
	a.config = c
	a.store = st
	return a, nil
}

// newApp wires an App around ready services, reading stdin and writing
// stdout.
func newApp(session services.SessionService, entities services.EntityService, logger logging.Logger) *App {
	a := &App{
		logger:   logger.With("module", "cli"),
		session:  session,
		entities: entities,
		board:    board.New(entities, logger),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	// The open project belongs to whoever opened it.
	a.unsubscribe = session.Subscribe(func(context.Context, *models.Identity) {
		a.board.SetProject("")
	})
	return a
}

// Run starts the REPL and returns when the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Root(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Info(ctx, "interrupted")
	}
	return a.Close()
}

// Root greets the user and runs the REPL on the app's reader.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to taskboard (type 'help' for commands)")
	if me := a.session.CurrentUser(); me != nil {
		fmt.Fprintf(a.out, "Logged in as %s <%s>\n", me.Name, me.Email)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.entities.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.CurrentUser() != nil
}

func (a *App) hasProject() bool {
	return a.board.ProjectID() != ""
}

func (a *App) getStatus() string {
	me := a.session.CurrentUser()
	if me == nil {
		return ""
	}
	s := me.Name
	if p, ok := a.entities.Project(a.board.ProjectID()); ok {
		s += " / " + p.Name
	}
	return fmt.Sprintf("(%s)", s)
}
