package usersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/userdir/internal/domain"
	"github.com/mkrupp/userdir/internal/infra/logging"
	http_ "github.com/mkrupp/userdir/internal/infra/transport/http"
)

// maxBodyBytes caps the size of a POST /users body.
const maxBodyBytes = 1 << 20

var (
	// ErrMalformedRequest is returned when a request body cannot be decoded.
	ErrMalformedRequest = errors.New("MALFORMED_REQUEST")
	// ErrNoUsername is returned when the username is missing from the request.
	ErrNoUsername = errors.New("no username")
	// ErrNoEmail is returned when the email is missing from the request.
	ErrNoEmail = errors.New("no email")
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the JSON body of a successful POST /users.
type StatusResponse struct {
	Status string `json:"status"`
}

// HTTPTransport handles HTTP requests for the user service.
type HTTPTransport struct {
	userSvc *UserService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// It requires a UserService for handling user operations.
func NewHTTPTransport(
	userSvc *UserService,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		userSvc: userSvc,
		log:     logging.GetLogger("svc.usersvc.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	ht.mux.HandleFunc("POST /users", ht.HandleCreate)
	ht.mux.HandleFunc("GET /users/{username}", ht.HandleGet)

	return ht
}

// ServeHTTP implements http.Handler for the user service endpoints:
// - POST /users: Create a user
// - GET /users/{username}: Fetch a user.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleCreate processes user creation requests.
// Expects a JSON body: {"username": "...", "email": "..."}.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user create failed", "error", err)
		} else {
			log.DebugContext(ctx, "user created")
		}
	}(r.Context())

	newUser, err := decodeNewUser(w, r)
	if err != nil {
		ht.writeJSON(r.Context(), w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})

		return err
	}

	log = log.With(logging.Group("user", "username", newUser.Username))

	if err := ht.userSvc.CreateUser(r.Context(), newUser); err != nil {
		ht.writeError(r.Context(), w, err)

		return fmt.Errorf("create user: %w", err)
	}

	ht.writeJSON(r.Context(), w, http.StatusOK, StatusResponse{Status: "ok"})

	return nil
}

// HandleGet processes user lookup requests.
// Returns the stored user as JSON.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	username := r.PathValue("username")

	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("user", "username", username),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user get failed", "error", err)
		} else {
			log.DebugContext(ctx, "user fetched")
		}
	}(r.Context())

	found, err := ht.userSvc.GetUser(r.Context(), username)
	if err != nil {
		ht.writeError(r.Context(), w, err)

		return fmt.Errorf("get user: %w", err)
	}

	ht.writeJSON(r.Context(), w, http.StatusOK, found)

	return nil
}

func decodeNewUser(w http.ResponseWriter, r *http.Request) (domain.NewUser, error) {
	var newUser domain.NewUser

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(&newUser); err != nil {
		return domain.NewUser{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	if newUser.Username == "" {
		return domain.NewUser{}, fmt.Errorf("%w: %w", ErrMalformedRequest, ErrNoUsername)
	}

	if newUser.Email == "" {
		return domain.NewUser{}, fmt.Errorf("%w: %w", ErrMalformedRequest, ErrNoEmail)
	}

	return newUser, nil
}

// StatusCode maps a service error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (ht *HTTPTransport) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: "INTERNAL_ERROR"}

	var userErr *domain.UserError
	if errors.As(err, &userErr) {
		resp.Error = userErr.Error()
	}

	ht.writeJSON(ctx, w, StatusCode(err), resp)
}

func (ht *HTTPTransport) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		ht.log.ErrorContext(ctx, "encode response failed", "error", err)
	}
}
