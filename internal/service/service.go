// Package service holds the resource API orchestration: credential checks,
// the ownership guard on mutation, and booking hydration. Handlers stay
// thin; every authorization decision lives here and always produces an
// explicit error, never a silent no-response branch.
package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/staybook/internal/auth"
	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type placeKeeper interface {
	CreatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) (string, error)

	UpdatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) error

	GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error)

	GetAllPlaces(ctx context.Context) ([]models.Place, error)

	GetPlacesByOwner(ctx context.Context, ownerID string) ([]models.Place, error)
}

type bookingKeeper interface {
	CreateBooking(ctx context.Context, booking *models.Booking, transaction *sql.Tx) (string, error)

	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfPlaces(ctx context.Context) (int64, error)

	GetNumberOfBookings(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	placeKeeper
	bookingKeeper
	statsKeeper
	pinger
}

type Service struct {
	db storage
}

func New(db storage) *Service {
	return &Service{
		db: db,
	}
}

// Register creates an account, storing only a salted bcrypt hash of the
// password. A duplicate email surfaces as models.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	usr := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}

	usr.ID, err = s.db.CreateUser(ctx, usr, nil)
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// Authenticate looks the user up by email and verifies the password.
// Returns models.ErrUserNotFound for an unknown email and
// models.ErrWrongPassword for a failed comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := auth.VerifyPassword(usr.PasswordHash, password); err != nil {
		return nil, err
	}

	return usr, nil
}

// GetUser returns the user's profile fields.
func (s *Service) GetUser(ctx context.Context, userID string) (*user.User, error) {
	return s.db.GetUserByID(ctx, userID)
}

// CreatePlace creates a listing owned by the caller. Any authenticated user
// may create places; the session identity becomes the owner.
func (s *Service) CreatePlace(ctx context.Context, userID string, fields *models.PlaceRequest) (*models.Place, error) {
	place := placeFromRequest(fields)
	place.OwnerID = userID

	var err error
	place.ID, err = s.db.CreatePlace(ctx, place, nil)
	if err != nil {
		return nil, err
	}

	return place, nil
}

// UpdatePlace loads the existing place, applies the ownership guard and
// replaces the mutable fields. The owner of the place never changes.
// A caller who is not the owner gets models.ErrForbidden.
func (s *Service) UpdatePlace(ctx context.Context, userID string, fields *models.PlaceRequest) error {
	existing, err := s.db.GetPlaceByID(ctx, fields.ID)
	if err != nil {
		return err
	}

	if existing.OwnerID != userID {
		return models.ErrForbidden
	}

	place := placeFromRequest(fields)
	place.ID = existing.ID
	place.OwnerID = existing.OwnerID

	return s.db.UpdatePlace(ctx, place, nil)
}

// GetPlace returns a single listing. Reads are public.
func (s *Service) GetPlace(ctx context.Context, placeID string) (*models.Place, error) {
	return s.db.GetPlaceByID(ctx, placeID)
}

// ListPlaces returns every listing. No pagination.
func (s *Service) ListPlaces(ctx context.Context) ([]models.Place, error) {
	return s.db.GetAllPlaces(ctx)
}

// ListOwnedPlaces returns the caller's own listings.
func (s *Service) ListOwnedPlaces(ctx context.Context, userID string) ([]models.Place, error) {
	return s.db.GetPlacesByOwner(ctx, userID)
}

// CreateBooking books a place for the caller. The booking's user is always
// the session identity, irrespective of anything the client sent. The
// referenced place must exist; date overlaps and guest capacity are not
// checked.
func (s *Service) CreateBooking(ctx context.Context, userID string, fields *models.BookingRequest) (*models.Booking, error) {
	if _, err := s.db.GetPlaceByID(ctx, fields.Place); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:         userID,
		PlaceID:        fields.Place,
		CheckIn:        fields.CheckIn,
		CheckOut:       fields.CheckOut,
		NumberOfGuests: fields.NumberOfGuests,
		ContactName:    fields.Name,
		ContactPhone:   fields.Phone,
		Price:          fields.Price,
	}

	var err error
	booking.ID, err = s.db.CreateBooking(ctx, booking, nil)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// ListBookings returns the caller's bookings, each hydrated with its
// referenced place. A booking whose place has disappeared is returned with a
// nil place rather than dropped.
func (s *Service) ListBookings(ctx context.Context, userID string) ([]models.BookingWithPlace, error) {
	bookings, err := s.db.GetBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	placeIDs := funk.Uniq(funk.Map(bookings, func(b models.Booking) string {
		return b.PlaceID
	}).([]string)).([]string)

	placesByID := make(map[string]*models.Place, len(placeIDs))
	for _, placeID := range placeIDs {
		place, err := s.db.GetPlaceByID(ctx, placeID)
		if err != nil {
			if errors.Is(err, models.ErrPlaceNotFound) {
				continue
			}
			return nil, err
		}
		placesByID[placeID] = place
	}

	result := make([]models.BookingWithPlace, 0, len(bookings))
	for _, booking := range bookings {
		result = append(result, models.BookingWithPlace{
			Booking: booking,
			Place:   placesByID[booking.PlaceID],
		})
	}

	return result, nil
}

// GetInternalStats returns entity counts for the ops endpoint.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	places, err := s.db.GetNumberOfPlaces(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	bookings, err := s.db.GetNumberOfBookings(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Users:    users,
		Places:   places,
		Bookings: bookings,
	}, nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func placeFromRequest(fields *models.PlaceRequest) *models.Place {
	return &models.Place{
		Title:       fields.Title,
		Address:     fields.Address,
		Photos:      fields.AddedPhotos,
		Description: fields.Description,
		Perks:       fields.Perks,
		ExtraInfo:   fields.ExtraInfo,
		CheckIn:     fields.CheckIn,
		CheckOut:    fields.CheckOut,
		MaxGuests:   fields.MaxGuests,
		Price:       fields.Price,
	}
}
