// Package cli provides the interactive taskboard command-line client.
//
// It wires configuration, the local store, the session and entity services
// and a board for the open project, then runs a REPL until the user exits.
//
// Key features:
//   - Signup / Login / Logout, with the session restored on start
//   - Projects: list, create, delete (with its tasks), open
//   - Board: show columns, add, move between columns, edit, delete tasks
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See runREPL for the command list.
package cli
