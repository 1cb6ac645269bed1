package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olenev/userhub/internal/mailer"
	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/storage"
	"github.com/olenev/userhub/internal/user/usecase/command"
	"github.com/olenev/userhub/internal/user/usecase/query"
	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/auth"
	"github.com/olenev/userhub/pkg/logger"
)

// maxAvatarMemory caps how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxAvatarMemory = 8 << 20

// UserHandler handles HTTP requests for users
type UserHandler struct {
	// Command handlers
	registerHandler     *command.RegisterUserHandler
	loginHandler        *command.LoginUserHandler
	refreshHandler      *command.RefreshTokenHandler
	confirmEmailHandler *command.ConfirmEmailHandler
	requestEmailHandler *command.RequestEmailHandler
	updateHandler       *command.UpdateUserHandler
	avatarHandler       *command.UpdateAvatarHandler
	deleteHandler       *command.DeleteUserHandler
	changeRoleHandler   *command.ChangeRoleHandler
	toggleActiveHandler *command.ToggleActiveHandler

	// Query handlers
	getUserHandler *query.GetUserHandler
	listHandler    *query.ListUsersHandler
	statsHandler   *query.GetStatsHandler

	repo       domain.UserRepository
	auth       *AuthMiddleware
	dispatcher mailer.Dispatcher
	publisher  *kafka.Publisher

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	activeUsers    prometheus.Gauge
}

// NewUserHandler creates a new user handler. The dispatcher delivers
// verification mail; publisher may be nil when Kafka is not configured.
func NewUserHandler(repo domain.UserRepository, avatars storage.AvatarStorage, tokens *auth.TokenManager, dispatcher mailer.Dispatcher, publisher *kafka.Publisher) *UserHandler {
	// Initialize command handlers
	registerHandler := command.NewRegisterUserHandler(repo)
	loginHandler := command.NewLoginUserHandler(repo, tokens)
	refreshHandler := command.NewRefreshTokenHandler(repo, tokens)
	confirmEmailHandler := command.NewConfirmEmailHandler(repo, tokens)
	requestEmailHandler := command.NewRequestEmailHandler(repo)
	updateHandler := command.NewUpdateUserHandler(repo)
	avatarHandler := command.NewUpdateAvatarHandler(repo, avatars)
	deleteHandler := command.NewDeleteUserHandler(repo)
	changeRoleHandler := command.NewChangeRoleHandler(repo)
	toggleActiveHandler := command.NewToggleActiveHandler(repo)

	// Initialize query handlers
	getUserHandler := query.NewGetUserHandler(repo)
	listHandler := query.NewListUsersHandler(repo)
	statsHandler := query.NewGetStatsHandler(repo)

	// Initialize Prometheus metrics
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userhub_requests_total",
			Help: "Total number of requests to the userhub API",
		},
		[]string{"method", "endpoint", "status"},
	)
	if err := prometheus.Register(requestCounter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			requestCounter = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "userhub_request_duration_seconds",
			Help:    "Duration of userhub API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	if err := prometheus.Register(requestLatency); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			requestLatency = are.ExistingCollector.(*prometheus.HistogramVec)
		}
	}

	activeUsers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "userhub_active_users",
			Help: "Number of active user accounts",
		},
	)
	if err := prometheus.Register(activeUsers); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			activeUsers = are.ExistingCollector.(prometheus.Gauge)
		}
	}

	return &UserHandler{
		registerHandler:     registerHandler,
		loginHandler:        loginHandler,
		refreshHandler:      refreshHandler,
		confirmEmailHandler: confirmEmailHandler,
		requestEmailHandler: requestEmailHandler,
		updateHandler:       updateHandler,
		avatarHandler:       avatarHandler,
		deleteHandler:       deleteHandler,
		changeRoleHandler:   changeRoleHandler,
		toggleActiveHandler: toggleActiveHandler,
		getUserHandler:      getUserHandler,
		listHandler:         listHandler,
		statsHandler:        statsHandler,
		repo:                repo,
		auth:                NewAuthMiddleware(tokens, repo),
		dispatcher:          dispatcher,
		publisher:           publisher,
		requestCounter:      requestCounter,
		requestLatency:      requestLatency,
		activeUsers:         activeUsers,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *UserHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// requestBaseURL reconstructs the externally visible base URL of the
// request for links embedded in outgoing mail.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// sendVerificationEmail queues a confirmation mail for the user. A
// dispatch failure is logged, never surfaced; the account exists
// either way and the address can be re-requested.
func (h *UserHandler) sendVerificationEmail(r *http.Request, user *domain.User) {
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.DispatchVerification(r.Context(), user.Email, user.Username, requestBaseURL(r)); err != nil {
		logger.Error(r.Context()).
			Err(err).
			Str("email", user.Email).
			Msg("Failed to dispatch verification email")
	}
}

// publishUserRegistered announces the new account on Kafka
func (h *UserHandler) publishUserRegistered(ctx context.Context, user *domain.User) {
	if h.publisher == nil {
		return
	}
	event := kafka.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
	if err := h.publisher.PublishUserRegistered(ctx, event); err != nil {
		logger.Error(ctx).
			Err(err).
			Uint("user_id", user.ID).
			Msg("Failed to publish user registered event")
	}
}

// Signup handles POST /api/auth/signup
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     domain.RoleUser, // Public signup never sets a role
	}

	user, err := h.registerHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			h.respondError(w, http.StatusConflict, "Account already exists")
		case errors.Is(err, domain.ErrUsernameTaken):
			h.respondError(w, http.StatusConflict, "Username already taken")
		default:
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.sendVerificationEmail(r, user)
	h.publishUserRegistered(r.Context(), user)

	h.updateActiveUsersMetric(r.Context())
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"detail": "User successfully created",
	})
}

// Login handles POST /api/auth/login. The username field carries the
// email address, matching the OAuth2 password form.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.LoginUserCommand{
		Email:    req.Username,
		Password: req.Password,
	}

	pair, err := h.loginHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEmail):
			h.respondError(w, http.StatusUnauthorized, "Invalid email")
		case errors.Is(err, domain.ErrEmailNotConfirmed):
			h.respondError(w, http.StatusUnauthorized, "Email not confirmed")
		case errors.Is(err, domain.ErrUserDeactivated):
			h.respondError(w, http.StatusForbidden, "Account is deactivated")
		case errors.Is(err, domain.ErrInvalidPassword):
			h.respondError(w, http.StatusUnauthorized, "Invalid password")
		default:
			h.respondError(w, http.StatusUnauthorized, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, pair)
}

// RefreshToken handles GET /api/auth/refresh_token
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	pair, err := h.refreshHandler.Handle(r.Context(), command.RefreshTokenCommand{Token: token})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefreshMismatch):
			h.respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		case errors.Is(err, domain.ErrUserDeactivated):
			h.respondError(w, http.StatusForbidden, "Account is deactivated")
		default:
			h.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, pair)
}

// ConfirmEmail handles GET /api/auth/confirmed_email/{token}
func (h *UserHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := h.confirmEmailHandler.Handle(r.Context(), command.ConfirmEmailCommand{Token: vars["token"]})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidScope):
			h.respondError(w, http.StatusUnprocessableEntity, "Invalid token for email verification")
		case errors.Is(err, domain.ErrUserNotFound):
			h.respondError(w, http.StatusBadRequest, "Verification error")
		default:
			h.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if result.AlreadyConfirmed {
		h.respondJSON(w, http.StatusOK, map[string]string{"message": "Your email is already confirmed"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Email confirmed"})
}

// RequestEmail handles POST /api/auth/request_email. The reply never
// reveals whether an address is registered.
func (h *UserHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.requestEmailHandler.Handle(r.Context(), command.RequestEmailCommand{Email: req.Email})
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if result.AlreadyConfirmed {
		h.respondJSON(w, http.StatusOK, map[string]string{"message": "Your email is already confirmed"})
		return
	}

	if result.User != nil {
		h.sendVerificationEmail(r, result.User)
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Check your email for confirmation."})
}

// GetProfile handles GET /api/users/me (authenticated user)
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/me (authenticated user)
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.UpdateUserCommand{
		ID:       user.ID,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}

	updated, err := h.updateHandler.Handle(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			h.respondError(w, http.StatusConflict, "Account already exists")
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, updated)
}

// UpdateAvatar handles PATCH /api/users/avatar (authenticated user)
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	cmd := command.UpdateAvatarCommand{
		UserID:   user.ID,
		Filename: header.Filename,
		Content:  file,
	}

	updated, err := h.avatarHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedFormat):
			h.respondError(w, http.StatusBadRequest, "Unsupported image format")
		case errors.Is(err, domain.ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, updated)
}

// --- ADMIN ENDPOINTS ---

// CreateUser handles POST /api/admin/users (admin only)
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.RegisterUserCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role, // Admin can set role
	}

	user, err := h.registerHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			h.respondError(w, http.StatusConflict, "Account already exists")
		case errors.Is(err, domain.ErrUsernameTaken):
			h.respondError(w, http.StatusConflict, "Username already taken")
		default:
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.updateActiveUsersMetric(r.Context())
	h.respondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/admin/users/{id} (admin only)
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	q := query.GetUserQuery{ID: uint(id)}
	user, err := h.getUserHandler.Handle(r.Context(), q)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /api/admin/users (admin only)
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	role := r.URL.Query().Get("role")

	q := query.ListUsersQuery{
		Limit:  limit,
		Offset: offset,
		Role:   role,
	}

	users, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.updateActiveUsersMetric(r.Context())
	h.respondJSON(w, http.StatusOK, users)
}

// UpdateUser handles PUT /api/admin/users/{id} (admin only)
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.UpdateUserCommand{
		ID:       uint(id),
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}

	user, err := h.updateHandler.Handle(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrEmailTaken):
			h.respondError(w, http.StatusConflict, "Account already exists")
		default:
			h.respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/users/{id} (admin only)
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	cmd := command.DeleteUserCommand{ID: uint(id)}
	if err := h.deleteHandler.Handle(r.Context(), cmd); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.updateActiveUsersMetric(r.Context())
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// ChangeRole handles PUT /api/admin/users/{id}/role (admin only)
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		Role string `json:"role"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.ChangeRoleCommand{
		UserID: uint(id),
		Role:   req.Role,
	}

	user, err := h.changeRoleHandler.Handle(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, user)
}

// ToggleActive handles PUT /api/admin/users/{id}/active (admin only)
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cmd := command.ToggleActiveCommand{
		UserID:   uint(id),
		IsActive: req.IsActive,
	}

	user, err := h.toggleActiveHandler.Handle(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.updateActiveUsersMetric(r.Context())
	h.respondJSON(w, http.StatusOK, user)
}

// GetStats handles GET /api/admin/stats (admin only)
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context(), query.GetStatsQuery{})
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /api/healthchecker
func (h *UserHandler) HealthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		// Check database connectivity
		if err := db.PingContext(ctx); err != nil {
			logger.Error(r.Context()).Err(err).Msg("Health check failed")
			h.respondError(w, http.StatusServiceUnavailable, "Error connecting to the database")
			return
		}

		h.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to userhub!"})
	}
}

// updateActiveUsersMetric updates the active users gauge
func (h *UserHandler) updateActiveUsersMetric(ctx context.Context) {
	count, err := h.repo.CountActive(ctx)
	if err == nil {
		h.activeUsers.Set(float64(count))
	}
}

// respondJSON sends a JSON response
func (h *UserHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func (h *UserHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	// Public routes
	router.HandleFunc("/api/auth/signup", h.metricsMiddleware("/api/auth/signup", h.Signup)).Methods("POST")
	router.HandleFunc("/api/auth/login", h.metricsMiddleware("/api/auth/login", h.Login)).Methods("POST")
	router.HandleFunc("/api/auth/refresh_token", h.metricsMiddleware("/api/auth/refresh_token", h.RefreshToken)).Methods("GET")
	router.HandleFunc("/api/auth/confirmed_email/{token}", h.metricsMiddleware("/api/auth/confirmed_email/{token}", h.ConfirmEmail)).Methods("GET")
	router.HandleFunc("/api/auth/request_email", h.metricsMiddleware("/api/auth/request_email", h.RequestEmail)).Methods("POST")

	// Authenticated user routes
	router.HandleFunc("/api/users/me", h.metricsMiddleware("/api/users/me", h.auth.Authenticate(h.GetProfile))).Methods("GET")
	router.HandleFunc("/api/users/me", h.metricsMiddleware("/api/users/me", h.auth.Authenticate(h.UpdateProfile))).Methods("PUT")
	router.HandleFunc("/api/users/avatar", h.metricsMiddleware("/api/users/avatar", h.auth.Authenticate(h.UpdateAvatar))).Methods("PATCH")

	// Admin routes
	router.HandleFunc("/api/admin/users", h.metricsMiddleware("/api/admin/users", h.auth.AdminOnly(h.CreateUser))).Methods("POST")
	router.HandleFunc("/api/admin/users", h.metricsMiddleware("/api/admin/users", h.auth.AdminOnly(h.ListUsers))).Methods("GET")
	router.HandleFunc("/api/admin/users/{id}", h.metricsMiddleware("/api/admin/users/{id}", h.auth.AdminOnly(h.GetUser))).Methods("GET")
	router.HandleFunc("/api/admin/users/{id}", h.metricsMiddleware("/api/admin/users/{id}", h.auth.AdminOnly(h.UpdateUser))).Methods("PUT")
	router.HandleFunc("/api/admin/users/{id}", h.metricsMiddleware("/api/admin/users/{id}", h.auth.AdminOnly(h.DeleteUser))).Methods("DELETE")
	router.HandleFunc("/api/admin/users/{id}/role", h.metricsMiddleware("/api/admin/users/{id}/role", h.auth.AdminOnly(h.ChangeRole))).Methods("PUT")
	router.HandleFunc("/api/admin/users/{id}/active", h.metricsMiddleware("/api/admin/users/{id}/active", h.auth.AdminOnly(h.ToggleActive))).Methods("PUT")
	router.HandleFunc("/api/admin/stats", h.metricsMiddleware("/api/admin/stats", h.auth.AdminOnly(h.GetStats))).Methods("GET")
}

// RegisterHealthCheck registers the health check endpoint
func (h *UserHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/api/healthchecker", h.metricsMiddleware("/api/healthchecker", h.HealthCheck(db))).Methods("GET")
}
