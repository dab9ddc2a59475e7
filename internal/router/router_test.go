package router_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/staybook/internal/auth"
	"github.com/patric-chuzhbe/staybook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/staybook/internal/ipchecker"
	"github.com/patric-chuzhbe/staybook/internal/logger"
	"github.com/patric-chuzhbe/staybook/internal/media"
	"github.com/patric-chuzhbe/staybook/internal/mediastore/localdisk"
	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/router"
	"github.com/patric-chuzhbe/staybook/internal/service"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

func TestMain(m *testing.M) {
	if err := logger.Init("debug"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// newTestServer spins a full HTTP stack over the in-memory backend with a
// local-disk media store rooted in a temp dir.
func newTestServer(t *testing.T, trustedSubnet string) *httptest.Server {
	t.Helper()

	db, err := memorystorage.New()
	require.NoError(t, err)

	mediaStore, err := localdisk.New(t.TempDir(), "")
	require.NoError(t, err)

	var checker *ipchecker.IPChecker
	if trustedSubnet != "" {
		checker, err = ipchecker.New(trustedSubnet)
		require.NoError(t, err)
	}

	handler := router.New(
		service.New(db),
		media.New(mediaStore, 5*time.Second),
		auth.New("token", []byte("router-test-signing-key")),
		router.Options{
			UploadsDir: mediaStore.Dir(),
			IPChecker:  checker,
		},
	)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func newClient(server *httptest.Server) *resty.Client {
	return resty.New().SetBaseURL(server.URL)
}

// registerAndLogin creates an account and signs it in, leaving the session
// cookie in the client's jar.
func registerAndLogin(t *testing.T, client *resty.Client, name, email, password string) *user.User {
	t.Helper()

	registered := &user.User{}
	response, err := client.R().
		SetBody(map[string]string{"name": name, "email": email, "password": password}).
		SetResult(registered).
		Post("/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.NotEmpty(t, registered.ID)

	response, err = client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	return registered
}

func testPlaceBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"address":     "1 Test Street",
		"addedPhotos": []string{"/uploads/photo1.jpg"},
		"description": "A place for tests",
		"perks":       []string{"wifi", "parking"},
		"extraInfo":   "",
		"checkIn":     "14:00",
		"checkOut":    "11:00",
		"maxGuests":   4,
		"price":       120,
	}
}

func TestRegisterLoginProfileLogout(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)

	// Without a session the profile is JSON null, not an error.
	response, err := client.R().Get("/profile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "null\n", string(response.Body()))

	alice := registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	profile := &user.User{}
	response, err = client.R().SetResult(profile).Get("/profile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, alice.ID, profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)

	response, err = client.R().Post("/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())

	response, err = client.R().Get("/profile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "null\n", string(response.Body()))
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)

	tests := []struct {
		name string
		body map[string]string
	}{
		{
			name: "missing name",
			body: map[string]string{"email": "alice@example.com", "password": "s3cret"},
		},
		{
			name: "malformed email",
			body: map[string]string{"name": "Alice", "email": "not-an-email", "password": "s3cret"},
		},
		{
			name: "missing password",
			body: map[string]string{"name": "Alice", "email": "alice@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := client.R().SetBody(tt.body).Post("/register")
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode())
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)

	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	response, err := client.R().
		SetBody(map[string]string{"name": "Another Alice", "email": "alice@example.com", "password": "other"}).
		Post("/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode())
}

func TestLoginFailures(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)

	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{
			name:       "wrong password",
			email:      "alice@example.com",
			password:   "nope",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown email",
			email:      "nobody@example.com",
			password:   "s3cret",
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := newClient(server).R().
				SetBody(map[string]string{"email": tt.email, "password": tt.password}).
				Post("/login")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, response.StatusCode())
		})
	}
}

func TestSessionRequiredRoutes(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/uploadbylink"},
		{http.MethodPost, "/upload"},
		{http.MethodPost, "/places"},
		{http.MethodPut, "/places"},
		{http.MethodGet, "/user-places"},
		{http.MethodPost, "/bookings"},
		{http.MethodGet, "/bookings"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			response, err := client.R().Execute(tt.method, tt.path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, response.StatusCode())
		})
	}
}

func TestPlaceLifecycleAndOwnership(t *testing.T) {
	server := newTestServer(t, "")

	aliceClient := newClient(server)
	alice := registerAndLogin(t, aliceClient, "Alice", "alice@example.com", "s3cret")

	created := &models.Place{}
	response, err := aliceClient.R().
		SetBody(testPlaceBody("Seaside flat")).
		SetResult(created).
		Post("/places")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.NotEmpty(t, created.ID)
	assert.Equal(t, alice.ID, created.OwnerID)

	// The listing is publicly readable.
	fetched := &models.Place{}
	response, err = newClient(server).R().SetResult(fetched).Get("/places/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "Seaside flat", fetched.Title)

	var ownPlaces []models.Place
	response, err = aliceClient.R().SetResult(&ownPlaces).Get("/user-places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, ownPlaces, 1)
	assert.Equal(t, created.ID, ownPlaces[0].ID)

	// Bob cannot update Alice's listing.
	bobClient := newClient(server)
	registerAndLogin(t, bobClient, "Bob", "bob@example.com", "hunter2")

	hijack := testPlaceBody("Bob's place now")
	hijack["id"] = created.ID
	response, err = bobClient.R().SetBody(hijack).Put("/places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())

	response, err = newClient(server).R().SetResult(fetched).Get("/places/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "Seaside flat", fetched.Title)
	assert.Equal(t, alice.ID, fetched.OwnerID)

	// The owner can.
	update := testPlaceBody("Seaside flat, renovated")
	update["id"] = created.ID
	response, err = aliceClient.R().SetBody(update).Put("/places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())

	response, err = newClient(server).R().SetResult(fetched).Get("/places/" + created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, "Seaside flat, renovated", fetched.Title)

	// Bob's empty result set, Alice's single listing and the public index.
	var bobPlaces []models.Place
	response, err = bobClient.R().SetResult(&bobPlaces).Get("/user-places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Empty(t, bobPlaces)

	var allPlaces []models.Place
	response, err = newClient(server).R().SetResult(&allPlaces).Get("/places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Len(t, allPlaces, 1)
}

func TestGetUnknownPlace(t *testing.T) {
	server := newTestServer(t, "")

	response, err := newClient(server).R().Get("/places/no-such-place")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
}

func TestPutPlaceRequiresID(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	response, err := client.R().SetBody(testPlaceBody("No id")).Put("/places")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode())
}

func TestBookingsFlow(t *testing.T) {
	server := newTestServer(t, "")

	aliceClient := newClient(server)
	registerAndLogin(t, aliceClient, "Alice", "alice@example.com", "s3cret")

	place := &models.Place{}
	response, err := aliceClient.R().
		SetBody(testPlaceBody("Seaside flat")).
		SetResult(place).
		Post("/places")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())

	bobClient := newClient(server)
	bob := registerAndLogin(t, bobClient, "Bob", "bob@example.com", "hunter2")

	// A client-supplied user field is discarded; the session identity wins.
	booking := &models.Booking{}
	response, err = bobClient.R().
		SetBody(map[string]interface{}{
			"place":          place.ID,
			"user":           "someone-else",
			"checkIn":        "2026-09-01",
			"checkOut":       "2026-09-05",
			"numberOfGuests": 2,
			"name":           "Bob",
			"phone":          "+1555000111",
			"price":          480,
		}).
		SetResult(booking).
		Post("/bookings")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, bob.ID, booking.UserID)
	assert.Equal(t, place.ID, booking.PlaceID)

	var bookings []models.BookingWithPlace
	response, err = bobClient.R().SetResult(&bookings).Get("/bookings")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, bookings, 1)
	require.NotNil(t, bookings[0].Place)
	assert.Equal(t, "Seaside flat", bookings[0].Place.Title)

	// Alice has no bookings of her own.
	var aliceBookings []models.BookingWithPlace
	response, err = aliceClient.R().SetResult(&aliceBookings).Get("/bookings")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Empty(t, aliceBookings)
}

func TestBookingUnknownPlace(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Bob", "bob@example.com", "hunter2")

	response, err := client.R().
		SetBody(map[string]interface{}{
			"place":          "no-such-place",
			"checkIn":        "2026-09-01",
			"checkOut":       "2026-09-05",
			"numberOfGuests": 2,
			"name":           "Bob",
			"phone":          "+1555000111",
		}).
		Post("/bookings")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode())
}

func TestUploadMultipart(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	first := []byte("first file bytes")
	second := []byte("second file bytes, a bit longer")

	var references []string
	response, err := client.R().
		SetFileReader("photos", "one.png", bytes.NewReader(first)).
		SetFileReader("photos", "two.jpg", bytes.NewReader(second)).
		SetResult(&references).
		Post("/upload")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.Len(t, references, 2)

	// References come back in input order and preserve the extension.
	assert.Contains(t, references[0], ".png")
	assert.Contains(t, references[1], ".jpg")

	// The stored bytes are reachable through the static route, unchanged.
	for i, want := range [][]byte{first, second} {
		response, err := client.R().Get(references[i])
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, response.StatusCode())
		assert.Equal(t, want, response.Body())
	}
}

func TestUploadByLink(t *testing.T) {
	photo := []byte("\x89PNG\r\n\x1a\nfake image payload")
	upstream := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.Header().Set("Content-Type", "image/png")
		response.Write(photo)
	}))
	defer upstream.Close()

	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	var reference string
	response, err := client.R().
		SetBody(map[string]string{"link": upstream.URL + "/photo.png"}).
		SetResult(&reference).
		Post("/uploadbylink")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	require.NotEmpty(t, reference)
	assert.Contains(t, reference, "/uploads/photo")

	response, err = client.R().Get(reference)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, photo, response.Body())
}

func TestUploadByLinkUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		http.Error(response, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	response, err := client.R().
		SetBody(map[string]string{"link": upstream.URL + "/missing.png"}).
		Post("/uploadbylink")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, response.StatusCode())
}

func TestUploadByLinkValidation(t *testing.T) {
	server := newTestServer(t, "")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	response, err := client.R().
		SetBody(map[string]string{"link": "not a url"}).
		Post("/uploadbylink")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, response.StatusCode())
}

func TestInternalStatsTrustedSubnet(t *testing.T) {
	server := newTestServer(t, "127.0.0.0/8")
	client := newClient(server)
	registerAndLogin(t, client, "Alice", "alice@example.com", "s3cret")

	stats := &models.InternalStatsResponse{}
	response, err := client.R().SetResult(stats).Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
	assert.Equal(t, int64(1), stats.Users)

	// A caller outside the subnet is refused.
	response, err = client.R().
		SetHeader("X-Real-IP", "10.1.2.3").
		Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, response.StatusCode())
}

func TestPing(t *testing.T) {
	server := newTestServer(t, "")

	response, err := newClient(server).R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode())
}
