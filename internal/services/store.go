// Package services contains the application services of taskboard: the
// session service that tracks who is logged in, and the entity service that
// owns the logged-in user's projects and tasks.
//
// Both are backed by the local key-value store. Every value is a codec
// envelope; see package codec for the layout.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskboard/internal/codec"
	"github.com/dmitrijs2005/taskboard/internal/repositories/kv"
)

// Store is the persistence the services need. storage.Store implements it.
type Store interface {
	KV() kv.Repository
	// Update runs fn in one transaction; fn must use the repo it is given.
	Update(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error
}

const (
	keyToken = "token"
	keyUser  = "user"
	keyUsers = "users"
)

func projectsKey(userID string) string { return "projects-" + userID }
func tasksKey(userID string) string    { return "tasks-" + userID }

// getDoc reads and decodes key. found is false when the key is absent.
// A value that fails to decode is returned as a codec error with found set.
func getDoc[T any](ctx context.Context, repo kv.Repository, key string, kind codec.Kind) (v T, found bool, err error) {
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return v, false, err
	}
	if raw == nil {
		return v, false, nil
	}
	v, err = codec.Decode[T](kind, raw)
	return v, true, err
}

func putDoc(ctx context.Context, repo kv.Repository, key string, v any) error {
	b, err := codec.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return repo.Set(ctx, key, b)
}

func isCodecErr(err error) bool {
	return errors.Is(err, codec.ErrMalformed) || errors.Is(err, codec.ErrUnsupportedVersion)
}
