// Package models defines the domain entities, request/response payloads and
// sentinel errors shared between the storage, service and router layers.
package models

import "errors"

// Place is a rental listing. OwnerID is assigned on creation from the
// session identity and is never updated afterwards.
type Place struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner"`
	Title       string   `json:"title"`
	Address     string   `json:"address"`
	Photos      []string `json:"photos"`
	Description string   `json:"description"`
	Perks       []string `json:"perks"`
	ExtraInfo   string   `json:"extraInfo"`
	CheckIn     string   `json:"checkIn"`
	CheckOut    string   `json:"checkOut"`
	MaxGuests   int      `json:"maxGuests"`
	Price       float64  `json:"price"`
}

// Booking is a stay reservation. UserID always equals the creator's session
// identity, never a client-supplied value. Bookings are immutable once
// created.
type Booking struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user"`
	PlaceID        string  `json:"place"`
	CheckIn        string  `json:"checkIn"`
	CheckOut       string  `json:"checkOut"`
	NumberOfGuests int     `json:"numberOfGuests"`
	ContactName    string  `json:"name"`
	ContactPhone   string  `json:"phone"`
	Price          float64 `json:"price"`
}

// BookingWithPlace is a booking hydrated with its referenced place,
// as returned by GET /bookings.
type BookingWithPlace struct {
	Booking
	Place *Place `json:"placeDoc"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PlaceRequest carries the mutable place fields for POST /places and
// PUT /places. ID is only meaningful for updates.
type PlaceRequest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	AddedPhotos []string `json:"addedPhotos"`
	Description string   `json:"description"`
	Perks       []string `json:"perks"`
	ExtraInfo   string   `json:"extraInfo"`
	CheckIn     string   `json:"checkIn"`
	CheckOut    string   `json:"checkOut"`
	MaxGuests   int      `json:"maxGuests" validate:"required,gt=0"`
	Price       float64  `json:"price" validate:"required,gt=0"`
}

// BookingRequest carries booking fields for POST /bookings. Any user field
// present in the raw JSON is ignored; the booking owner is taken from the
// session.
type BookingRequest struct {
	Place          string  `json:"place" validate:"required"`
	CheckIn        string  `json:"checkIn" validate:"required"`
	CheckOut       string  `json:"checkOut" validate:"required"`
	NumberOfGuests int     `json:"numberOfGuests" validate:"required,gt=0"`
	Name           string  `json:"name" validate:"required"`
	Phone          string  `json:"phone" validate:"required"`
	Price          float64 `json:"price"`
}

type UploadByLinkRequest struct {
	Link string `json:"link" validate:"required,url"`
}

// InternalStatsResponse is the payload for GET /api/internal/stats.
type InternalStatsResponse struct {
	Users    int64 `json:"users"`
	Places   int64 `json:"places"`
	Bookings int64 `json:"bookings"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	// ErrUnauthenticated means the request carried no session cookie or the
	// token failed verification. Always mapped to 401, never a fault.
	ErrUnauthenticated = errors.New("missing or invalid session")

	// ErrForbidden means the session is valid but the caller does not own
	// the resource being mutated.
	ErrForbidden = errors.New("caller does not own the resource")

	ErrUserNotFound  = errors.New("user not found")
	ErrPlaceNotFound = errors.New("place not found")

	// ErrEmailTaken is returned on registration with an already used email.
	ErrEmailTaken = errors.New("email already registered")

	ErrWrongPassword = errors.New("password does not match")

	// ErrStorageUnavailable wraps media backend write failures. It is a
	// retryable condition, distinct from permanent validation failures.
	ErrStorageUnavailable = errors.New("media storage unavailable")

	// ErrUpstreamFetch wraps failures to download a photo from a remote URL.
	ErrUpstreamFetch = errors.New("failed to fetch remote photo")
)
