package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// subjectID stringifies the authenticated user's ID for use in rate
// limit keys. Unauthenticated requests share the "anon" bucket.
func subjectID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "anon"
		}
		return t
	case uint64, int64, int, float64:
		return fmt.Sprint(t)
	}
	return "anon"
}
