package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID resolves the caller identity that JWTAuth stored in the
// context; the rate limiter keys buckets by it so an anonymous browser
// and an authenticated customer never share a bucket.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the user identifier stored by JWTAuth, or "anon"
// when the request is unauthenticated.  Numeric subjects are printed as-is
// so tokens with integer IDs still get per-user buckets.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "anon"
	case string:
		if v == "" {
			return "anon"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
