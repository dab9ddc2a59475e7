package jsondb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

func newTestDB(t *testing.T) *JSONDB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "staybook.json"))
	require.NoError(t, err)

	return db
}

func TestCreateUserEnforcesUniqueEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	userID, err := db.CreateUser(ctx, &user.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	_, err = db.CreateUser(ctx, &user.User{Name: "Another Alice", Email: "alice@example.com", PasswordHash: "hash2"}, nil)
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestUserLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	userID, err := db.CreateUser(ctx, &user.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}, nil)
	require.NoError(t, err)

	byID, err := db.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	byEmail, err := db.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, byEmail.ID)

	_, err = db.GetUserByID(ctx, "no-such-user")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = db.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestUpdatePlacePreservesOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	placeID, err := db.CreatePlace(ctx, &models.Place{OwnerID: "alice-id", Title: "Seaside flat"}, nil)
	require.NoError(t, err)

	err = db.UpdatePlace(ctx, &models.Place{
		ID:      placeID,
		OwnerID: "mallory-id",
		Title:   "Renamed",
	}, nil)
	require.NoError(t, err)

	place, err := db.GetPlaceByID(ctx, placeID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", place.Title)
	assert.Equal(t, "alice-id", place.OwnerID)
}

func TestUpdatePlaceUnknownID(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdatePlace(context.Background(), &models.Place{ID: "no-such-place"}, nil)
	assert.ErrorIs(t, err, models.ErrPlaceNotFound)
}

func TestGetPlacesByOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, seed := range []models.Place{
		{OwnerID: "alice-id", Title: "First"},
		{OwnerID: "alice-id", Title: "Second"},
		{OwnerID: "bob-id", Title: "Third"},
	} {
		_, err := db.CreatePlace(ctx, &seed, nil)
		require.NoError(t, err)
	}

	owned, err := db.GetPlacesByOwner(ctx, "alice-id")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	all, err := db.GetAllPlaces(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReadsReturnCopies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	placeID, err := db.CreatePlace(ctx, &models.Place{OwnerID: "alice-id", Title: "Seaside flat"}, nil)
	require.NoError(t, err)

	first, err := db.GetPlaceByID(ctx, placeID)
	require.NoError(t, err)
	first.Title = "Mutated by caller"

	second, err := db.GetPlaceByID(ctx, placeID)
	require.NoError(t, err)
	assert.Equal(t, "Seaside flat", second.Title)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "staybook.json")
	ctx := context.Background()

	db, err := New(fileName)
	require.NoError(t, err)

	userID, err := db.CreateUser(ctx, &user.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash"}, nil)
	require.NoError(t, err)
	placeID, err := db.CreatePlace(ctx, &models.Place{OwnerID: userID, Title: "Seaside flat"}, nil)
	require.NoError(t, err)
	_, err = db.CreateBooking(ctx, &models.Booking{UserID: userID, PlaceID: placeID}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := New(fileName)
	require.NoError(t, err)

	usr, err := reopened.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, usr.ID)

	place, err := reopened.GetPlaceByID(ctx, placeID)
	require.NoError(t, err)
	assert.Equal(t, "Seaside flat", place.Title)

	bookings, err := reopened.GetBookingsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users, err := db.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, users)

	userID, err := db.CreateUser(ctx, &user.User{Name: "Alice", Email: "alice@example.com"}, nil)
	require.NoError(t, err)
	placeID, err := db.CreatePlace(ctx, &models.Place{OwnerID: userID}, nil)
	require.NoError(t, err)
	_, err = db.CreateBooking(ctx, &models.Booking{UserID: userID, PlaceID: placeID}, nil)
	require.NoError(t, err)

	users, err = db.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)

	places, err := db.GetNumberOfPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), places)

	bookings, err := db.GetNumberOfBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bookings)
}
