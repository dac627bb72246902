package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/middleware"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
	"github.com/vpetkovic/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const birthDateLayout = "2006-01-02"

type usersRepo interface {
	Add(ctx context.Context, user User) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	SetLastLogin(ctx context.Context, id int, at time.Time) error
}

type registerRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=30"`
	Password  string  `json:"password" validate:"required"`
	Name      string  `json:"name" validate:"required,max=100"`
	BirthDate string  `json:"birthDate" validate:"required"`
	HeightCm  float64 `json:"heightCm" validate:"required,gte=50,lte=300"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name      string  `json:"name" validate:"required,max=100"`
	BirthDate string  `json:"birthDate" validate:"required"`
	HeightCm  float64 `json:"heightCm" validate:"required,gte=50,lte=300"`
	Password  string  `json:"password"` // optional, empty keeps the current one
}

type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Handler struct {
	repo              usersRepo
	authService       *auth.Service
	metrics           *metrics.Manager
	passwordMinLength int
}

func NewHandler(
	repo usersRepo,
	authService *auth.Service,
	metricsManager *metrics.Manager,
	passwordMinLength int,
) *Handler {
	return &Handler{
		repo:              repo,
		authService:       authService,
		metrics:           metricsManager,
		passwordMinLength: passwordMinLength,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitAllowedPerMin int,
) {
	accountSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	accountSubrouter.HandleFunc("/register", handler.handleRegister).Methods("POST", "OPTIONS").Name("register")
	accountSubrouter.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("login")
	accountSubrouter.HandleFunc("/logout", handler.handleLogout).Methods("GET", "OPTIONS").Name("logout")
	accountSubrouter.HandleFunc("/me", handler.handleGetMe).Methods("GET", "OPTIONS").Name("get-me")
	accountSubrouter.HandleFunc("/me", handler.handleUpdateMe).Methods("PUT", "OPTIONS").Name("update-me")

	// rate limit the account endpoints to prevent credential abuse
	accountSubrouter.Use(middleware.RateLimit(rateLimiter, "account", loginRateLimitAllowedPerMin))
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.register")
	defer span.End()

	var registerReq registerRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	fieldErrs := pkg.ValidateStruct(registerReq)
	if len(registerReq.Password) < handler.passwordMinLength {
		fieldErrs = append(fieldErrs, pkg.FieldError{
			Field: "Password",
			Error: fmt.Sprintf("min=%d", handler.passwordMinLength),
		})
	}
	birthDate, bdErr := parseBirthDate(registerReq.BirthDate)
	if bdErr != nil {
		fieldErrs = append(fieldErrs, *bdErr)
	}
	if len(fieldErrs) > 0 {
		pkg.WriteFieldErrors(w, fieldErrs)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	addedUser, err := handler.repo.Add(ctx, User{
		Username:     registerReq.Username,
		PasswordHash: passwordHash,
		Name:         registerReq.Name,
		BirthDate:    birthDate,
		HeightCm:     registerReq.HeightCm,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			pkg.WriteSingleFieldError(w, "Username", "taken")
			return
		}
		log.Errorf("failed to register user [%s]: %s", registerReq.Username, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRegisteredUsers.Inc()

	// auto-login after registration
	token, err := handler.startSession(ctx, w, addedUser)
	if err != nil {
		log.Errorf("register, start session for user %d: %s", addedUser.ID, err)
		http.Error(w, "register succeeded, login failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(sessionResponse{Token: token, User: addedUser})
	if err != nil {
		log.Errorf("register, marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s [%d]", addedUser.Username, addedUser.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.login")
	defer span.End()

	var loginReq loginRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			http.Error(w, "login failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		loginReq = loginRequest{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	if loginReq.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByUsername(ctx, loginReq.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[username] failed login attempt for user: %s", loginReq.Username)
			http.Error(w, "error, wrong credentials", http.StatusBadRequest)
			return
		}
		log.Errorf("login, get user [%s]: %s", loginReq.Username, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", loginReq.Username)
		http.Error(w, "error, wrong credentials", http.StatusBadRequest)
		return
	}

	token, err := handler.startSession(ctx, w, user)
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogins.Inc()

	respJson, err := json.Marshal(sessionResponse{Token: token, User: user})
	if err != nil {
		log.Errorf("login, marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success: user %d", user.ID)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.logout")
	defer span.End()

	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, token)
	if err != nil || !loggedOut {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (handler *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.getMe")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		log.Errorf("get me, user %d: %s", userID, err)
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("get me, marshal user: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

func (handler *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "usersHandler.updateMe")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var updateReq updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Tracef("update profile, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}

	fieldErrs := pkg.ValidateStruct(updateReq)
	if updateReq.Password != "" && len(updateReq.Password) < handler.passwordMinLength {
		fieldErrs = append(fieldErrs, pkg.FieldError{
			Field: "Password",
			Error: fmt.Sprintf("min=%d", handler.passwordMinLength),
		})
	}
	birthDate, bdErr := parseBirthDate(updateReq.BirthDate)
	if bdErr != nil {
		fieldErrs = append(fieldErrs, *bdErr)
	}
	if len(fieldErrs) > 0 {
		pkg.WriteFieldErrors(w, fieldErrs)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		log.Errorf("update profile, get user %d: %s", userID, err)
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	user.Name = updateReq.Name
	user.BirthDate = birthDate
	user.HeightCm = updateReq.HeightCm
	if updateReq.Password != "" {
		passwordHash, err := pkg.HashPassword(updateReq.Password)
		if err != nil {
			log.Errorf("update profile, hash password: %s", err)
			http.Error(w, "update profile failed", http.StatusInternalServerError)
			return
		}
		user.PasswordHash = passwordHash
	}

	if err := handler.repo.UpdateProfile(ctx, user); err != nil {
		log.Errorf("failed to update profile of user %d: %s", userID, err)
		http.Error(w, "error, failed to update profile", http.StatusInternalServerError)
		return
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("update profile, marshal user: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

// startSession issues a session token and sets the browser cookie.
func (handler *Handler) startSession(ctx context.Context, w http.ResponseWriter, user *User) (string, error) {
	now := time.Now()
	token, err := handler.authService.Login(ctx, user.ID, now)
	if err != nil {
		return "", err
	}

	if err := handler.repo.SetLastLogin(ctx, user.ID, now); err != nil {
		// not fatal for the login itself
		log.Errorf("set last login for user %d: %s", user.ID, err)
	}
	user.LastLoginAt = &now

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(auth.DefaultTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}

func parseBirthDate(s string) (time.Time, *pkg.FieldError) {
	birthDate, err := time.Parse(birthDateLayout, s)
	if err != nil {
		return time.Time{}, &pkg.FieldError{Field: "BirthDate", Error: "invalid date, want YYYY-MM-DD"}
	}
	if birthDate.After(time.Now()) {
		return time.Time{}, &pkg.FieldError{Field: "BirthDate", Error: "must not be in the future"}
	}
	return birthDate, nil
}
