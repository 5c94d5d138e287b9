package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a recording stub.
type execIface interface {
	isLoggedIn() bool
	hasProject() bool

	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	ListProjects(ctx context.Context) error
	NewProject(ctx context.Context) error
	DeleteProject(ctx context.Context, id string) error
	OpenProject(ctx context.Context, id string) error

	ShowBoard(ctx context.Context) error
	AddTask(ctx context.Context, column string) error
	MoveTask(ctx context.Context, taskID, column string, index int) error
	EditTask(ctx context.Context, taskID string) error
	DeleteTask(ctx context.Context, taskID string) error
	Refresh(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: signup, login, exit"
	helpLoggedIn  = "Available commands: projects, newproject, delproject <id>, open <id>, " +
		"board, add <column>, move <taskId> <column> [index], edit <taskId>, deltask <taskId>, " +
		"refresh, whoami, logout, exit\nColumns: todo, in-progress, done"
)

// needs describes what a command requires before it runs.
type needs int

const (
	needNothing needs = iota
	needLogin
	needProject
)

var commandNeeds = map[string]needs{
	"whoami":     needNothing,
	"projects":   needLogin,
	"newproject": needLogin,
	"delproject": needLogin,
	"open":       needLogin,
	"board":      needProject,
	"add":        needProject,
	"move":       needProject,
	"edit":       needProject,
	"deltask":    needProject,
	"refresh":    needProject,
}

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is done.
//
//	Not logged in:
//	  - help                              show available commands
//	  - signup | login                    authenticate
//	  - whoami                            show the current user
//	  - exit | quit                       leave the program
//
//	Logged in:
//	  - projects                          list projects
//	  - newproject                        create a project
//	  - delproject <id>                   delete a project and its tasks
//	  - open <id>                         open a project's board
//	  - board                             show the open board
//	  - add <column>                      add a task to a column
//	  - move <taskId> <column> [index]    drag a task
//	  - edit <taskId> | deltask <taskId>  change or remove a task
//	  - refresh                           reload the board from the store
//	  - logout
//
// Handler errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("tb %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch commandNeeds[cmd] {
		case needLogin:
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
		case needProject:
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			if !a.hasProject() {
				printlnFn("No project open. Use: open <id>")
				continue
			}
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "signup":
			cmdErr = a.Signup(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "projects":
			cmdErr = a.ListProjects(ctx)
		case "newproject":
			cmdErr = a.NewProject(ctx)
		case "delproject":
			if len(args) != 1 {
				printlnFn("Usage: delproject <id>")
				continue
			}
			cmdErr = a.DeleteProject(ctx, args[0])
		case "open":
			if len(args) != 1 {
				printlnFn("Usage: open <id>")
				continue
			}
			cmdErr = a.OpenProject(ctx, args[0])

		case "board":
			cmdErr = a.ShowBoard(ctx)
		case "add":
			if len(args) != 1 {
				printlnFn("Usage: add <column>")
				continue
			}
			cmdErr = a.AddTask(ctx, args[0])
		case "move":
			if len(args) < 2 || len(args) > 3 {
				printlnFn("Usage: move <taskId> <column> [index]")
				continue
			}
			index := -1
			if len(args) == 3 {
				n, err := strconv.Atoi(args[2])
				if err != nil || n < 0 {
					printlnFn("Index must be a non-negative number")
					continue
				}
				index = n
			}
			cmdErr = a.MoveTask(ctx, args[0], args[1], index)
		case "edit":
			if len(args) != 1 {
				printlnFn("Usage: edit <taskId>")
				continue
			}
			cmdErr = a.EditTask(ctx, args[0])
		case "deltask":
			if len(args) != 1 {
				printlnFn("Usage: deltask <taskId>")
				continue
			}
			cmdErr = a.DeleteTask(ctx, args[0])
		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
