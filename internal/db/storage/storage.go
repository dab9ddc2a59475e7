// Package storage declares the persistence contract implemented by the
// Postgres, JSON-file and in-memory backends. The backend is chosen once at
// startup; everything above it is backend-agnostic.
package storage

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

// Storage is the full persistence surface. Write methods accept an optional
// *sql.Tx; backends without transactions ignore it.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	CreatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) (string, error)

	// UpdatePlace replaces the mutable fields of the place identified by
	// place.ID. The owner column is never touched.
	UpdatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) error

	GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error)

	GetAllPlaces(ctx context.Context) ([]models.Place, error)

	GetPlacesByOwner(ctx context.Context, ownerID string) ([]models.Place, error)

	CreateBooking(ctx context.Context, booking *models.Booking, transaction *sql.Tx) (string, error)

	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfPlaces(ctx context.Context) (int64, error)

	GetNumberOfBookings(ctx context.Context) (int64, error)

	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	Ping(ctx context.Context) error

	Close() error
}
