package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/opsgate/ssh-gateway/internal/keyauth"
	"github.com/opsgate/ssh-gateway/internal/routing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	configRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_config_requests_total",
		Help: "The total number of /config requests received",
	})
	pubkeyRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_pubkey_requests_total",
		Help: "The total number of /pubkey requests received",
	})
)

// requestMetadata carries optional identity provider claims attached to a
// config request by the broker.
type requestMetadata struct {
	OIDCEmail string `json:"oidc_email"`
	Email     string `json:"email"`
}

type configRequest struct {
	Username string           `json:"username"`
	Metadata *requestMetadata `json:"metadata"`
}

// sshProxyConfig is the sshproxy backend stanza understood by the broker.
type sshProxyConfig struct {
	Server                     string   `json:"server"`
	Port                       int      `json:"port"`
	Username                   string   `json:"username"`
	PrivateKey                 string   `json:"privateKey"`
	AllowedHostKeyFingerprints []string `json:"allowedHostKeyFingerprints"`
}

type backendConfig struct {
	Backend  string         `json:"backend"`
	SSHProxy sshProxyConfig `json:"sshproxy"`
}

type configResponse struct {
	Config backendConfig `json:"config"`
}

type pubkeyRequest struct {
	Username  string `json:"username"`
	PublicKey string `json:"publicKey"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleConfig resolves the backend target for a session and returns the
// broker configuration pointing at it.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(pkgName).Start(r.Context(), "handleConfig")
	defer span.End()
	configRequestsTotal.Inc()
	log := s.log.With(slog.String("requestID", uuid.New().String()))
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("couldn't decode config request", slog.Any("error", err))
		writeJSON(log, w, http.StatusInternalServerError,
			resultResponse{Error: err.Error()})
		return
	}
	username := req.Username
	if username == "" && s.oidcEmailFallback {
		username = usernameFromMetadata(req.Metadata)
	}
	if username == "" {
		log.Warn("config request missing username")
		writeJSON(log, w, http.StatusBadRequest, resultResponse{})
		return
	}
	log = log.With(slog.String("username", username))
	target := routing.Resolve(username, s.users.Load(ctx))
	log.Info("resolved backend target",
		slog.String("server", target.Host),
		slog.Int("port", target.Port))
	writeJSON(log, w, http.StatusOK, configResponse{
		Config: backendConfig{
			Backend: "sshproxy",
			SSHProxy: sshProxyConfig{
				Server:                     target.Host,
				Port:                       target.Port,
				Username:                   username,
				PrivateKey:                 s.serviceKeyPath,
				AllowedHostKeyFingerprints: s.hostKeyFingerprints,
			},
		},
	})
}

// handlePubkey checks a submitted public key against the user's authorized
// keys. Failure detail is never leaked beyond the success boolean.
func (s *Server) handlePubkey(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(pkgName).Start(r.Context(), "handlePubkey")
	defer span.End()
	pubkeyRequestsTotal.Inc()
	log := s.log.With(slog.String("requestID", uuid.New().String()))
	var req pubkeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("couldn't decode pubkey request", slog.Any("error", err))
		writeJSON(log, w, http.StatusInternalServerError, resultResponse{})
		return
	}
	if keyauth.Authorize(
		ctx, log, req.Username, req.PublicKey, s.users.Load(ctx)) {
		writeJSON(log, w, http.StatusOK, resultResponse{Success: true})
		return
	}
	writeJSON(log, w, http.StatusForbidden, resultResponse{})
}

// handleHealth is a liveness check. It performs no dependency checks: a
// missing or corrupt users map file degrades routing but does not make the
// service unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.log, w, http.StatusOK, healthResponse{Status: "healthy"})
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int,
	body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("couldn't encode response body", slog.Any("error", err))
	}
}
