package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

// Collection names inside the shared key-value store.
const (
	KeyStudents        = "students"
	KeyExamResults     = "examResults"
	KeyStudentProgress = "studentProgress"
)

var (
	// ErrNotFound reports a lookup for an id the collection does not hold.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate reports an insert whose id already exists.
	ErrDuplicate = errors.New("repository: duplicate record")
)

// Key joins the configured prefix with a collection name.
func Key(prefix, name string) string {
	return prefix + name
}

// readBlob returns nil, nil for keys that were never written.
func readBlob(ctx context.Context, store kvstore.Store, key string) ([]byte, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func writeBlob(ctx context.Context, store kvstore.Store, key string, value []byte) error {
	if err := store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
