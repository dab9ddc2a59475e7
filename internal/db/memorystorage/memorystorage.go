// Package memorystorage provides a purely in-memory storage used as the
// fallback backend and in tests. It reuses the jsondb cache without touching
// the filesystem.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/staybook/internal/db/jsondb"
	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.CacheStruct{
				Users:        map[string]*user.User{},
				UsersByEmail: map[string]string{},
				Places:       map[string]*models.Place{},
				Bookings:     map[string]*models.Booking{},
			},
		},
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
