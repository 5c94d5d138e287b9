// Package kv provides the key-value persistence layer that stands in for
// browser-local storage.
//
// # Overview
//
// Every persisted document (session token, session user, the users
// collection, and each user's project and task lists) is a single value
// under a well-known key in the kv table. SQLRepository implements
// Repository over a dbx.DBTX, so it can be bound to either *sql.DB or a
// *sql.Tx when several keys must change atomically.
//
// # Dialects
//
// Queries are written with '?' placeholders and rebound per dialect with
// dbx.Rebind, so the same repository serves SQLite and PostgreSQL.
//
// Typical Usage
//
//	repo := kv.NewSQLRepository(db, dbx.DialectSQLite)
//	_ = repo.Set(ctx, "users", blob)
//	v, _ := repo.Get(ctx, "users") // nil, nil when absent
//	_ = repo.Delete(ctx, "token")
package kv
