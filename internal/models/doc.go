// Package models defines the taskboard entities: users and sessions,
// projects, and tasks, plus the value types used to create and patch tasks.
//
// JSON tags follow the persisted document layout, so the same structs are
// written to and read back from the local store.
package models
