// Package postgresdb provides a PostgreSQL-based implementation of the
// storage interface for persisting users, places and bookings.
// It supports transactional operations and runs schema migrations on startup.
package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

// PostgresDB is a PostgreSQL-backed implementation of the booking platform
// storage. It handles all persistence operations via a database connection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const pgUniqueViolation = "23505"

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil, fmt.Errorf("error while resetting the database: %w", err)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil, fmt.Errorf("error while `goose.Up()` calling: %w", err)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}
	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}
	return transaction
}

// CreateUser inserts a new user record into the database.
// A duplicate email surfaces as models.ErrEmailTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		usr.Name,
		usr.Email,
		usr.PasswordHash,
	)
	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", models.ErrEmailTaken
		}
		return "", err
	}

	return userIDFromDB, nil
}

// GetUserByID fetches a user by their UUID from the database.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password_hash FROM users WHERE id = $1`,
		userID,
	)

	return scanUser(row)
}

// GetUserByEmail fetches a user by their unique email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = $1`,
		email,
	)

	return scanUser(row)
}

func scanUser(row *sql.Row) (*user.User, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

// CreatePlace inserts a new place owned by place.OwnerID and returns its ID.
func (db *PostgresDB) CreatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) (string, error) {
	photos, perks, err := marshalPlaceLists(place)
	if err != nil {
		return "", err
	}

	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO places (
				owner_id, title, address, photos, description,
				perks, extra_info, check_in, check_out, max_guests, price
			)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				RETURNING id
		`,
		place.OwnerID,
		place.Title,
		place.Address,
		photos,
		place.Description,
		perks,
		place.ExtraInfo,
		place.CheckIn,
		place.CheckOut,
		place.MaxGuests,
		place.Price,
	)
	var placeIDFromDB string
	if err := row.Scan(&placeIDFromDB); err != nil {
		return "", err
	}

	return placeIDFromDB, nil
}

// UpdatePlace replaces the mutable fields of an existing place.
// The owner_id column is deliberately absent from the SET list.
func (db *PostgresDB) UpdatePlace(ctx context.Context, place *models.Place, transaction *sql.Tx) error {
	photos, perks, err := marshalPlaceLists(place)
	if err != nil {
		return err
	}

	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			UPDATE places
				SET title = $2,
					address = $3,
					photos = $4,
					description = $5,
					perks = $6,
					extra_info = $7,
					check_in = $8,
					check_out = $9,
					max_guests = $10,
					price = $11
				WHERE id = $1
		`,
		place.ID,
		place.Title,
		place.Address,
		photos,
		place.Description,
		perks,
		place.ExtraInfo,
		place.CheckIn,
		place.CheckOut,
		place.MaxGuests,
		place.Price,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrPlaceNotFound
	}

	return nil
}

// GetPlaceByID fetches a single place.
func (db *PostgresDB) GetPlaceByID(ctx context.Context, placeID string) (*models.Place, error) {
	rows, err := db.database.QueryContext(
		ctx,
		selectPlaces+` WHERE id = $1`,
		placeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places, err := scanPlaces(rows)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, models.ErrPlaceNotFound
	}

	return &places[0], nil
}

// GetAllPlaces returns every place. No pagination.
func (db *PostgresDB) GetAllPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := db.database.QueryContext(ctx, selectPlaces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// GetPlacesByOwner returns the places owned by the given user.
func (db *PostgresDB) GetPlacesByOwner(ctx context.Context, ownerID string) ([]models.Place, error) {
	rows, err := db.database.QueryContext(
		ctx,
		selectPlaces+` WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPlaces(rows)
}

const selectPlaces = `
	SELECT id, owner_id, title, address, photos, description,
			perks, extra_info, check_in, check_out, max_guests, price
		FROM places
`

func scanPlaces(rows *sql.Rows) ([]models.Place, error) {
	result := []models.Place{}
	for rows.Next() {
		var place models.Place
		var photos, perks []byte
		err := rows.Scan(
			&place.ID,
			&place.OwnerID,
			&place.Title,
			&place.Address,
			&photos,
			&place.Description,
			&perks,
			&place.ExtraInfo,
			&place.CheckIn,
			&place.CheckOut,
			&place.MaxGuests,
			&place.Price,
		)
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(photos, &place.Photos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(perks, &place.Perks); err != nil {
			return nil, err
		}

		result = append(result, place)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func marshalPlaceLists(place *models.Place) (photos, perks []byte, err error) {
	if place.Photos == nil {
		place.Photos = []string{}
	}
	if place.Perks == nil {
		place.Perks = []string{}
	}

	photos, err = json.Marshal(place.Photos)
	if err != nil {
		return nil, nil, err
	}

	perks, err = json.Marshal(place.Perks)
	if err != nil {
		return nil, nil, err
	}

	return photos, perks, nil
}

// CreateBooking inserts a new booking and returns its ID.
func (db *PostgresDB) CreateBooking(ctx context.Context, booking *models.Booking, transaction *sql.Tx) (string, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO bookings (
				user_id, place_id, check_in, check_out,
				number_of_guests, contact_name, contact_phone, price
			)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id
		`,
		booking.UserID,
		booking.PlaceID,
		booking.CheckIn,
		booking.CheckOut,
		booking.NumberOfGuests,
		booking.ContactName,
		booking.ContactPhone,
		booking.Price,
	)
	var bookingIDFromDB string
	if err := row.Scan(&bookingIDFromDB); err != nil {
		return "", err
	}

	return bookingIDFromDB, nil
}

// GetBookingsByUser returns the bookings created by the given user.
func (db *PostgresDB) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, place_id, check_in, check_out,
					number_of_guests, contact_name, contact_phone, price
				FROM bookings
				WHERE user_id = $1
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Booking{}
	for rows.Next() {
		var booking models.Booking
		err = rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.PlaceID,
			&booking.CheckIn,
			&booking.CheckOut,
			&booking.NumberOfGuests,
			&booking.ContactName,
			&booking.ContactPhone,
			&booking.Price,
		)
		if err != nil {
			return nil, err
		}

		result = append(result, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// GetNumberOfUsers returns the total count of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfPlaces returns the total count of places.
func (db *PostgresDB) GetNumberOfPlaces(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT COUNT(*) FROM places`)
}

// GetNumberOfBookings returns the total count of bookings.
func (db *PostgresDB) GetNumberOfBookings(ctx context.Context) (int64, error) {
	return db.countRows(ctx, `SELECT COUNT(*) FROM bookings`)
}

func (db *PostgresDB) countRows(ctx context.Context, query string) (int64, error) {
	var count int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// CommitTransaction commits the given SQL transaction.
// Returns an error if the commit operation fails.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// If rollback fails, the returned error describes the issue.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf("error while dropping the public schema tables: %w", err)
	}
	return nil
}
