// Package jsondb provides a JSON-file-backed implementation of the storage
// interface. All data lives in an in-memory cache which is flushed to disk on
// Close. It is meant for local development, not for production traffic.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

// JSONDB keeps the whole dataset in memory and persists it as one JSON file.
type JSONDB struct {
	fileName string

	mu    sync.RWMutex
	Cache CacheStruct
}

// CacheStruct is the serialized shape of the database file.
type CacheStruct struct {
	Users        map[string]*user.User
	UsersByEmail map[string]string
	Places       map[string]*models.Place
	Bookings     map[string]*models.Booking
}

func initDBFile(fileName string) error {
	dbFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(dbFile, `{
	"Users": {},
	"UsersByEmail": {},
	"Places": {},
	"Bookings": {}
}`)
	if err != nil {
		return err
	}
	return dbFile.Close()
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %s", err)
	}

	file, err2 := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err2 != nil {
		return fmt.Errorf("error opening file: %s", err2)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %s", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	return decoder.Decode(cacheMap)
}

// New loads the database file, creating an empty one when it does not exist.
func New(fileName string) (*JSONDB, error) {
	jsonDB := &JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(jsonDB.fileName, &jsonDB.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := initDBFile(fileName); err != nil {
			return nil, err
		}
		if err := parseJSONFile(jsonDB.fileName, &jsonDB.Cache); err != nil {
			return nil, err
		}
	}

	jsonDB.ensureMaps()

	return jsonDB, nil
}

func (db *JSONDB) ensureMaps() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}
	if db.Cache.UsersByEmail == nil {
		db.Cache.UsersByEmail = map[string]string{}
	}
	if db.Cache.Places == nil {
		db.Cache.Places = map[string]*models.Place{}
	}
	if db.Cache.Bookings == nil {
		db.Cache.Bookings = map[string]*models.Booking{}
	}
}

// CreateUser stores a new user, enforcing email uniqueness.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.Cache.UsersByEmail[usr.Email]; taken {
		return "", models.ErrEmailTaken
	}

	stored := *usr
	stored.ID = uuid.New().String()
	db.Cache.Users[stored.ID] = &stored
	db.Cache.UsersByEmail[stored.Email] = stored.ID

	return stored.ID, nil
}

// GetUserByID returns the user with the given ID.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[userID]
	if !found {
		return nil, models.ErrUserNotFound
	}

	copied := *usr
	return &copied, nil
}

// GetUserByEmail returns the user registered under the given email.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	userID, found := db.Cache.UsersByEmail[email]
	if !found {
		return nil, models.ErrUserNotFound
	}

	copied := *db.Cache.Users[userID]
	return &copied, nil
}

// CreatePlace stores a new place and returns its generated ID.
func (db *JSONDB) CreatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *place
	stored.ID = uuid.New().String()
	db.Cache.Places[stored.ID] = &stored

	return stored.ID, nil
}

// UpdatePlace replaces the mutable fields of an existing place. The stored
// owner is kept as is.
func (db *JSONDB) UpdatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, found := db.Cache.Places[place.ID]
	if !found {
		return models.ErrPlaceNotFound
	}

	updated := *place
	updated.OwnerID = existing.OwnerID
	db.Cache.Places[place.ID] = &updated

	return nil
}

// GetPlaceByID returns the place with the given ID.
func (db *JSONDB) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	place, found := db.Cache.Places[placeID]
	if !found {
		return nil, models.ErrPlaceNotFound
	}

	copied := *place
	return &copied, nil
}

// GetAllPlaces returns every stored place.
func (db *JSONDB) GetAllPlaces(ctx context.Context) ([]models.Place, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []models.Place{}
	for _, place := range db.Cache.Places {
		result = append(result, *place)
	}

	return result, nil
}

// GetPlacesByOwner returns the places owned by the given user.
func (db *JSONDB) GetPlacesByOwner(ctx context.Context, ownerID string) ([]models.Place, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []models.Place{}
	for _, place := range db.Cache.Places {
		if place.OwnerID == ownerID {
			result = append(result, *place)
		}
	}

	return result, nil
}

// CreateBooking stores a new booking and returns its generated ID.
func (db *JSONDB) CreateBooking(ctx context.Context, booking *models.Booking, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored := *booking
	stored.ID = uuid.New().String()
	db.Cache.Bookings[stored.ID] = &stored

	return stored.ID, nil
}

// GetBookingsByUser returns the bookings created by the given user.
func (db *JSONDB) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := []models.Booking{}
	for _, booking := range db.Cache.Bookings {
		if booking.UserID == userID {
			result = append(result, *booking)
		}
	}

	return result, nil
}

// GetNumberOfUsers returns the total count of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

// GetNumberOfPlaces returns the total count of places.
func (db *JSONDB) GetNumberOfPlaces(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Places)), nil
}

// GetNumberOfBookings returns the total count of bookings.
func (db *JSONDB) GetNumberOfBookings(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Bookings)), nil
}

// BeginTransaction is a no-op for the file backend.
func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

// RollbackTransaction is a no-op for the file backend.
func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

// CommitTransaction is a no-op for the file backend.
func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

// Ping always succeeds for the file backend.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the database file.
func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
