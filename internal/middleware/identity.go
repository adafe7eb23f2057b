package middleware

// identity.go defines helper functions shared across middleware files.
// It provides the user identifier extraction used when building
// rate-limit keys. JWTAuth stores the token subject under "user_id";
// the claim decodes as a float64 for our tokens but string forms are
// accepted for compatibility. When no user is authenticated, "anon" is
// returned.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts a user identifier from the Echo context as a
// string key segment. It returns "anon" when no user is authenticated.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
