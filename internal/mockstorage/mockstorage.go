// Package mockstorage provides a testify-based mock implementation
// of the storage interface used by the service and router packages.
// It is used for unit testing handlers by simulating storage behavior.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

// StorageMock is a testify mock that implements the persistence interface.
//
// Use it in tests to simulate database behavior.
type StorageMock struct {
	mock.Mock
}

// CreateUser mocks inserting a user.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, tx)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByEmail mocks fetching a user by email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// CreatePlace mocks inserting a place.
func (m *StorageMock) CreatePlace(ctx context.Context, place *models.Place, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, place, tx)
	return args.String(0), args.Error(1)
}

// UpdatePlace mocks replacing a place's mutable fields.
func (m *StorageMock) UpdatePlace(ctx context.Context, place *models.Place, tx *sql.Tx) error {
	args := m.Called(ctx, place, tx)
	return args.Error(0)
}

// GetPlaceByID mocks fetching a place by ID.
func (m *StorageMock) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	args := m.Called(ctx, placeID)
	place, _ := args.Get(0).(*models.Place)
	return place, args.Error(1)
}

// GetAllPlaces mocks listing all places.
func (m *StorageMock) GetAllPlaces(ctx context.Context) ([]models.Place, error) {
	args := m.Called(ctx)
	places, _ := args.Get(0).([]models.Place)
	return places, args.Error(1)
}

// GetPlacesByOwner mocks listing an owner's places.
func (m *StorageMock) GetPlacesByOwner(ctx context.Context, ownerID string) ([]models.Place, error) {
	args := m.Called(ctx, ownerID)
	places, _ := args.Get(0).([]models.Place)
	return places, args.Error(1)
}

// CreateBooking mocks inserting a booking.
func (m *StorageMock) CreateBooking(ctx context.Context, booking *models.Booking, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, booking, tx)
	return args.String(0), args.Error(1)
}

// GetBookingsByUser mocks listing a user's bookings.
func (m *StorageMock) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	args := m.Called(ctx, userID)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

// GetNumberOfUsers mocks the user count.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfPlaces mocks the place count.
func (m *StorageMock) GetNumberOfPlaces(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfBookings mocks the booking count.
func (m *StorageMock) GetNumberOfBookings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// Ping mocks a storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing storage resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
