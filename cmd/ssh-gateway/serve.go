package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsgate/ssh-gateway/internal/directory"
	"github.com/opsgate/ssh-gateway/internal/gateway"
	"github.com/opsgate/ssh-gateway/internal/metrics"
	"github.com/opsgate/ssh-gateway/internal/tracing"
	"golang.org/x/sync/errgroup"
)

const (
	metricsPort = ":9953"
)

// ServeCmd represents the serve command.
type ServeCmd struct {
	HTTPPort           uint          `kong:"default='8080',env='HTTP_PORT',help='Port the webhook server will listen on'"`
	UsersMapFile       string        `kong:"default='/data/users_map.json',env='USERS_MAP_FILE',help='Path to the JSON users map file'"`
	ServiceKey         string        `kong:"default='/etc/containerssh/keys/backend_id_ed25519',env='SERVICE_KEY',help='Path to the private key the broker uses to authenticate to backends'"`
	HostKeyFingerprint string        `kong:"default='SHA256:kE5o9I4CYKDAA4O11TEC/z2rDdBxnuj5MXcdT8cF6GU',env='HOST_KEY_FINGERPRINT',help='Allowed backend host key fingerprint'"`
	DirectoryCacheTTL  time.Duration `kong:"default='0',env='DIRECTORY_CACHE_TTL',help='Users map cache TTL. The TTL is the maximum staleness window for external edits. Zero disables caching and re-reads the file on every request'"`
	OIDCEmailFallback  bool          `kong:"env='OIDC_EMAIL_FALLBACK',help='Derive the username from the OIDC email claim in request metadata when the request has no username'"`
	Tracing            bool          `kong:"env='TRACING',help='Enable tracing to a local rotated trace log'"`
}

// Run the serve command to handle SSH broker webhook requests.
func (cmd *ServeCmd) Run(log *slog.Logger) error {
	// metrics needs a separate context because deferred Shutdown() will exit
	// immediately the context is done, which is the case for ctx on SIGTERM.
	m := metrics.NewServer(log, metricsPort)
	defer m.Shutdown(context.Background()) //nolint:errcheck
	// get main process context, which cancels on SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	// init tracing
	if cmd.Tracing {
		w, tp, err := tracing.NewTracerProvider(version)
		if err != nil {
			return fmt.Errorf("couldn't init tracer provider: %v", err)
		}
		defer w.Close()                         //nolint:errcheck
		defer tp.Shutdown(context.Background()) //nolint:errcheck
	}
	// init users map source
	var options []directory.Option
	if cmd.DirectoryCacheTTL > 0 {
		options = append(options,
			directory.WithCacheTTL(cmd.DirectoryCacheTTL))
	}
	users := directory.NewSource(log, cmd.UsersMapFile, options...)
	// start listening on TCP port
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", cmd.HTTPPort))
	if err != nil {
		return fmt.Errorf("couldn't listen on port %d: %v", cmd.HTTPPort, err)
	}
	defer l.Close()
	// set up goroutine handler
	eg, ctx := errgroup.WithContext(ctx)
	// start serving webhook requests
	eg.Go(func() error {
		return gateway.Serve(
			ctx,
			log,
			l,
			gateway.NewServer(
				log,
				users,
				cmd.ServiceKey,
				[]string{cmd.HostKeyFingerprint},
				cmd.OIDCEmailFallback,
			),
		)
	})
	return eg.Wait()
}
