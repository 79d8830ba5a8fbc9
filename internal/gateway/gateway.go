// Package gateway implements the HTTP webhook consumed by the SSH
// connection broker. It adapts the routing and key authorization decisions
// to the broker's JSON request/response contract.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/opsgate/ssh-gateway/internal/directory"
)

const pkgName = "github.com/opsgate/ssh-gateway/internal/gateway"

// Server handles SSH broker webhook requests.
type Server struct {
	log                 *slog.Logger
	users               *directory.Source
	serviceKeyPath      string
	hostKeyFingerprints []string
	oidcEmailFallback   bool
}

// NewServer returns a webhook Server backed by the given users map source.
// serviceKeyPath and hostKeyFingerprints are deployment constants embedded
// in every backend configuration response. If oidcEmailFallback is true,
// config requests without a username fall back to a username derived from
// the OIDC email claim in the request metadata.
func NewServer(
	log *slog.Logger,
	users *directory.Source,
	serviceKeyPath string,
	hostKeyFingerprints []string,
	oidcEmailFallback bool,
) *Server {
	return &Server{
		log:                 log,
		users:               users,
		serviceKeyPath:      serviceKeyPath,
		hostKeyFingerprints: hostKeyFingerprints,
		oidcEmailFallback:   oidcEmailFallback,
	}
}

// Handler returns the webhook route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /config", s.handleConfig)
	mux.HandleFunc("POST /pubkey", s.handlePubkey)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Serve webhook requests on the given listener until ctx is done.
func Serve(ctx context.Context, log *slog.Logger, l net.Listener,
	s *Server) error {
	srv := http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  16 * time.Second,
		WriteTimeout: 16 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(),
			8*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error("gateway server did not shut down cleanly",
				slog.Any("error", err))
		}
	}()
	if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
