package keyauth_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/opsgate/ssh-gateway/internal/directory"
	"github.com/opsgate/ssh-gateway/internal/keyauth"
)

const (
	aliceKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIFNwvVxZvA2Vq2T5mX0sT1r1C3wR alice@example.com"
	otherKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIE9tZXJlbHl1bnJlbGF0ZWRrZXk5 mallory@example.com"
)

func TestAuthorize(t *testing.T) {
	var testCases = map[string]struct {
		username     string
		submittedKey string
		users        directory.Map
		expect       bool
	}{
		"unknown user": {
			username:     "alice",
			submittedKey: aliceKey,
			users:        directory.Map{},
			expect:       false,
		},
		"user without authorized keys": {
			username:     "alice",
			submittedKey: aliceKey,
			users: directory.Map{
				"alice": {Backend: "vm2"},
			},
			expect: false,
		},
		"exact match": {
			username:     "alice",
			submittedKey: aliceKey,
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{aliceKey}},
			},
			expect: true,
		},
		"submitted key contains stored key": {
			username: "alice",
			// stored key has no comment, submitted key does
			submittedKey: aliceKey,
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{
					"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIFNwvVxZvA2Vq2T5mX0sT1r1C3wR",
				}},
			},
			expect: true,
		},
		"stored key contains submitted key": {
			username:     "alice",
			submittedKey: "AAAAC3NzaC1lZDI1NTE5AAAAIFNwvVxZvA2Vq2T5mX0sT1r1C3wR",
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{aliceKey}},
			},
			expect: true,
		},
		"whitespace is trimmed": {
			username:     "alice",
			submittedKey: "  " + aliceKey + "\n",
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{aliceKey + "\n"}},
			},
			expect: true,
		},
		"second stored key matches": {
			username:     "alice",
			submittedKey: aliceKey,
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{otherKey, aliceKey}},
			},
			expect: true,
		},
		"unrelated key": {
			username:     "alice",
			submittedKey: otherKey,
			users: directory.Map{
				"alice": {AuthorizedKeys: []string{aliceKey}},
			},
			expect: false,
		},
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	for name, tc := range testCases {
		t.Run(name, func(tt *testing.T) {
			assert.Equal(tt, tc.expect, keyauth.Authorize(
				context.Background(), log, tc.username, tc.submittedKey,
				tc.users), name)
		})
	}
}
