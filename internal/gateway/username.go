package gateway

import (
	"regexp"
	"strings"
)

const maxUsernameLength = 32

var invalidUsernameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// usernameFromMetadata derives a username from the OIDC email claim in the
// request metadata, preferring oidc_email over email. It returns an empty
// string if no claim is present.
func usernameFromMetadata(metadata *requestMetadata) string {
	if metadata == nil {
		return ""
	}
	email := metadata.OIDCEmail
	if email == "" {
		email = metadata.Email
	}
	if email == "" {
		return ""
	}
	localPart, _, _ := strings.Cut(email, "@")
	return sanitizeUsername(localPart)
}

// sanitizeUsername coerces name into a Unix-safe username: characters
// outside [A-Za-z0-9._-] become underscores, a leading "-" or "." becomes
// an underscore, and the result is truncated to 32 characters.
func sanitizeUsername(name string) string {
	name = invalidUsernameChars.ReplaceAllString(name, "_")
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		name = "_" + name[1:]
	}
	if len(name) > maxUsernameLength {
		name = name[:maxUsernameLength]
	}
	return name
}
