// Package router wires the HTTP surface: JSON handlers over the service
// layer, session middleware, gzip and CORS plumbing, and the static route
// serving locally stored photos. Every failure path writes an explicit
// response.
package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/staybook/internal/auth"
	"github.com/patric-chuzhbe/staybook/internal/gzippedhttp"
	"github.com/patric-chuzhbe/staybook/internal/ipchecker"
	"github.com/patric-chuzhbe/staybook/internal/logger"
	"github.com/patric-chuzhbe/staybook/internal/media"
	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/service"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; larger
// files spill to temp storage handled by net/http.
const maxMultipartMemory = 32 << 20

// Router holds the handler dependencies.
type Router struct {
	svc      *service.Service
	ingestor *media.Ingestor
	auth     *auth.Auth
	validate *validator.Validate
}

// Options configures the optional parts of the HTTP surface.
type Options struct {
	// AllowedOrigin is the browser origin allowed to send credentialed
	// requests. Empty disables CORS headers.
	AllowedOrigin string

	// UploadsDir, when non-empty, is served under /uploads/ for the
	// local-disk media backend.
	UploadsDir string

	// IPChecker gates GET /api/internal/stats to a trusted subnet.
	IPChecker *ipchecker.IPChecker
}

// New assembles the chi router with all routes and middleware.
func New(
	svc *service.Service,
	ingestor *media.Ingestor,
	theAuth *auth.Auth,
	options Options,
) http.Handler {
	myRouter := &Router{
		svc:      svc,
		ingestor: ingestor,
		auth:     theAuth,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipJSONAndTextHTMLRequest,
	)
	if options.AllowedOrigin != "" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{options.AllowedOrigin},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}))
	}

	router.Post(`/register`, myRouter.PostRegister)
	router.Post(`/login`, myRouter.PostLogin)
	router.Post(`/logout`, myRouter.PostLogout)
	router.With(theAuth.OptionalUser).Get(`/profile`, myRouter.GetProfile)

	router.Get(`/places`, myRouter.GetPlaces)
	router.Get(`/places/{id}`, myRouter.GetPlaceByID)
	router.Get(`/ping`, myRouter.GetPing)

	router.With(theAuth.RequireUser).Group(func(authenticated chi.Router) {
		authenticated.Post(`/uploadbylink`, myRouter.PostUploadbylink)
		authenticated.Post(`/upload`, myRouter.PostUpload)
		authenticated.Post(`/places`, myRouter.PostPlaces)
		authenticated.Put(`/places`, myRouter.PutPlaces)
		authenticated.Get(`/user-places`, myRouter.GetUserPlaces)
		authenticated.Post(`/bookings`, myRouter.PostBookings)
		authenticated.Get(`/bookings`, myRouter.GetBookings)
	})

	if options.IPChecker != nil {
		router.With(gzippedhttp.GzipResponse).
			Get(`/api/internal/stats`, myRouter.withTrustedSubnet(options.IPChecker, myRouter.GetApiinternalstats))
	}

	if options.UploadsDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(options.UploadsDir)))
		router.Get(`/uploads/*`, fileServer.ServeHTTP)
	}

	return router
}

// PostRegister creates an account. A duplicate email is a validation
// failure, not a fault.
func (router *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	var registerRequest models.RegisterRequest
	if !router.decodeAndValidate(response, request, &registerRequest) {
		return
	}

	usr, err := router.svc.Register(request.Context(), registerRequest.Name, registerRequest.Email, registerRequest.Password)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, usr)
}

// PostLogin verifies credentials and sets the session cookie.
func (router *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if !router.decodeAndValidate(response, request, &loginRequest) {
		return
	}

	usr, err := router.svc.Authenticate(request.Context(), loginRequest.Email, loginRequest.Password)
	if err != nil {
		router.writeError(response, err)
		return
	}

	if err := router.auth.SetSessionCookie(response, usr); err != nil {
		logger.Log.Debugln("Error calling the `router.auth.SetSessionCookie()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	router.writeJSON(response, http.StatusOK, usr)
}

// GetProfile returns the caller's user fields, or JSON null without a
// session.
func (router *Router) GetProfile(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		router.writeJSON(response, http.StatusOK, nil)
		return
	}

	usr, err := router.svc.GetUser(request.Context(), userID)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, usr)
}

// PostLogout clears the session cookie. There is no server-side session
// state to drop.
func (router *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	router.auth.ClearSessionCookie(response)
	router.writeJSON(response, http.StatusOK, true)
}

// PostUploadbylink ingests a photo from a remote URL and returns its
// stored-object reference.
func (router *Router) PostUploadbylink(response http.ResponseWriter, request *http.Request) {
	var uploadRequest models.UploadByLinkRequest
	if !router.decodeAndValidate(response, request, &uploadRequest) {
		return
	}

	reference, err := router.ingestor.IngestFromURL(request.Context(), uploadRequest.Link)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, reference)
}

// PostUpload ingests up to media.MaxUploadFiles multipart photos and returns
// their stored-object references in input order.
func (router *Router) PostUpload(response http.ResponseWriter, request *http.Request) {
	if err := request.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	fileHeaders := request.MultipartForm.File["photos"]
	if len(fileHeaders) > media.MaxUploadFiles {
		http.Error(response, "too many files", http.StatusUnprocessableEntity)
		return
	}

	uploads := make([]media.Upload, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		upload, err := readUpload(fileHeader)
		if err != nil {
			http.Error(response, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		uploads = append(uploads, upload)
	}

	references, err := router.ingestor.IngestUploads(request.Context(), uploads)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, references)
}

// PostPlaces creates a listing owned by the caller.
func (router *Router) PostPlaces(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	var placeRequest models.PlaceRequest
	if !router.decodeAndValidate(response, request, &placeRequest) {
		return
	}

	place, err := router.svc.CreatePlace(request.Context(), userID, &placeRequest)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, place)
}

// PutPlaces replaces the mutable fields of a listing the caller owns.
func (router *Router) PutPlaces(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	var placeRequest models.PlaceRequest
	if !router.decodeAndValidate(response, request, &placeRequest) {
		return
	}
	if placeRequest.ID == "" {
		http.Error(response, "id is required", http.StatusUnprocessableEntity)
		return
	}

	if err := router.svc.UpdatePlace(request.Context(), userID, &placeRequest); err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, "ok")
}

// GetPlaces returns all listings. Public, unpaginated.
func (router *Router) GetPlaces(response http.ResponseWriter, request *http.Request) {
	places, err := router.svc.ListPlaces(request.Context())
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, places)
}

// GetPlaceByID returns one listing.
func (router *Router) GetPlaceByID(response http.ResponseWriter, request *http.Request) {
	place, err := router.svc.GetPlace(request.Context(), chi.URLParam(request, "id"))
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, place)
}

// GetUserPlaces returns the caller's own listings.
func (router *Router) GetUserPlaces(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	places, err := router.svc.ListOwnedPlaces(request.Context(), userID)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, places)
}

// PostBookings books a place for the caller.
func (router *Router) PostBookings(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	var bookingRequest models.BookingRequest
	if !router.decodeAndValidate(response, request, &bookingRequest) {
		return
	}

	booking, err := router.svc.CreateBooking(request.Context(), userID, &bookingRequest)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, booking)
}

// GetBookings returns the caller's bookings with their places hydrated.
func (router *Router) GetBookings(response http.ResponseWriter, request *http.Request) {
	userID, ok := auth.UserIDFromContext(request.Context())
	if !ok {
		http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	bookings, err := router.svc.ListBookings(request.Context(), userID)
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, bookings)
}

// GetPing reports storage health.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiinternalstats returns entity counts for operators.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		router.writeError(response, err)
		return
	}

	router.writeJSON(response, http.StatusOK, stats)
}

func (router *Router) withTrustedSubnet(checker *ipchecker.IPChecker, next http.HandlerFunc) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		clientIP, err := checker.GetClientIP(request)
		if err != nil || !checker.Check(clientIP) {
			http.Error(response, "forbidden", http.StatusForbidden)
			return
		}

		next(response, request)
	}
}

func readUpload(fileHeader *multipart.FileHeader) (media.Upload, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return media.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Upload{}, err
	}

	return media.Upload{
		Data:             data,
		OriginalFilename: fileHeader.Filename,
		ContentType:      fileHeader.Header.Get("Content-Type"),
	}, nil
}

// decodeAndValidate parses the JSON body into dst and checks its validate
// tags, writing a 422 and returning false on any failure.
func (router *Router) decodeAndValidate(response http.ResponseWriter, request *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(request.Body).Decode(dst); err != nil {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return false
	}

	if err := router.validate.Struct(dst); err != nil {
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
		return false
	}

	return true
}

func (router *Router) writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response: ", zap.Error(err))
	}
}

// writeError maps domain errors to HTTP statuses. No operation leaves the
// request without a response.
func (router *Router) writeError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		http.Error(response, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, models.ErrForbidden):
		http.Error(response, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrPlaceNotFound):
		http.Error(response, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrEmailTaken), errors.Is(err, models.ErrWrongPassword):
		http.Error(response, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrStorageUnavailable):
		http.Error(response, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, models.ErrUpstreamFetch):
		http.Error(response, err.Error(), http.StatusBadGateway)
	default:
		logger.Log.Debugln("Unexpected handler error: ", zap.Error(err))
		http.Error(response, "internal error", http.StatusInternalServerError)
	}
}
