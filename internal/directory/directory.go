// Package directory loads the username to backend mapping consulted for
// routing and public key authorization decisions.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/opsgate/ssh-gateway/internal/cache"
	"go.opentelemetry.io/otel"
)

const pkgName = "github.com/opsgate/ssh-gateway/internal/directory"

// Record is the backend configuration of a single user.
// All fields are optional in the backing file.
type Record struct {
	Backend        string   `json:"backend"`
	Port           int      `json:"port"`
	AuthorizedKeys []string `json:"authorized_keys"`
}

// Map associates usernames with their backend configuration.
type Map map[string]Record

// Source reads the users map from a JSON file.
type Source struct {
	path  string
	log   *slog.Logger
	cache *cache.Cache[Map]
}

// Option is a functional option argument to NewSource().
type Option func(*Source)

// WithCacheTTL enables an in-memory cache on the Source with the given TTL.
// The TTL is the maximum staleness window: external edits to the users map
// file may not be visible until the TTL expires.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Source) {
		s.cache = cache.NewCache[Map](cache.WithTTL[Map](ttl))
	}
}

// NewSource returns a Source reading the users map from the file at path.
// By default every Load re-reads the file so that external edits take effect
// immediately.
func NewSource(log *slog.Logger, path string, options ...Option) *Source {
	s := Source{
		path: path,
		log:  log,
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// Load returns the current users map.
//
// Load never fails: a missing, unreadable or unparseable file degrades to an
// empty map. Storage errors are logged, not returned, so that the service
// falls back to pattern-based routing rather than refusing sessions.
func (s *Source) Load(ctx context.Context) Map {
	_, span := otel.Tracer(pkgName).Start(ctx, "Load")
	defer span.End()
	if s.cache != nil {
		if users, ok := s.cache.Get(); ok {
			return users
		}
	}
	users, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("users map file does not exist",
				slog.String("path", s.path))
		} else {
			s.log.Error("couldn't load users map",
				slog.String("path", s.path),
				slog.Any("error", err))
		}
		return Map{}
	}
	if s.cache != nil {
		s.cache.Set(users)
	}
	return users
}

// read loads and parses the users map file.
func (s *Source) read() (Map, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var users Map
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}
	return users, nil
}
