package auth

import "strings"

// BearerToken extracts the token from an Authorization header value.
// The scheme comparison is case-insensitive.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
