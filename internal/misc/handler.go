package misc

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devpystudio/backend/internal/auth"
	"github.com/devpystudio/backend/internal/middleware"
	"github.com/devpystudio/backend/internal/telemetry/metrics"
	"github.com/devpystudio/backend/internal/telemetry/tracing"
	"github.com/devpystudio/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type LoginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Handler struct {
	versionInfo string
	authService *auth.Service
}

func NewHandler(
	versionInfo string,
	authService *auth.Service,
) *Handler {
	return &Handler{
		versionInfo: versionInfo,
		authService: authService,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginRateLimitAllowedPerMin int,
	metricsManager *metrics.Manager,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	loginSubrouter := mainRouter.PathPrefix("/api/admin").Subrouter()
	loginSubrouter.
		HandleFunc("/login", handler.handleLogin).
		Methods("POST", "OPTIONS").Name("login")
	loginSubrouter.
		HandleFunc("/logout", handler.handleLogout).
		Methods("POST", "OPTIONS").Name("logout")

	// rate limit the /login and /logout endpoints to prevent abuse
	loginSubrouter.Use(middleware.RateLimit(rateLimiter, "login", loginRateLimitAllowedPerMin, metricsManager))
	loginSubrouter.Use(middleware.Cors())
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var credentials auth.Credentials
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
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
		credentials = auth.Credentials{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	if credentials.Username == "" {
		http.Error(w, "error, username empty", http.StatusBadRequest)
		return
	}
	if credentials.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	token, err := handler.authService.Login(r.Context(), credentials, time.Now())
	if err != nil {
		// same response for a wrong username and a wrong password, no
		// point telling an attacker which one was off
		if errors.Is(err, auth.ErrWrongUsername) || errors.Is(err, auth.ErrWrongPassword) {
			log.Tracef("failed login attempt for user: %s", credentials.Username)
			handler.writeLoginResponse(w, http.StatusUnauthorized, LoginResponse{Message: "invalid credentials"})
			return
		}
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	log.Trace("new login success")
	handler.writeLoginResponse(w, http.StatusOK, LoginResponse{
		Success:  true,
		Token:    token,
		Username: credentials.Username,
	})
}

func (handler *Handler) writeLoginResponse(w http.ResponseWriter, status int, resp LoginResponse) {
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("marshal login response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, status)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	authToken := r.Header.Get(middleware.AuthTokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(r.Context(), authToken)
	if err != nil {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	log.Printf("logout for [%s] success", authToken)
	pkg.WriteJSONResponseOK(w, `{"success": true}`)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
