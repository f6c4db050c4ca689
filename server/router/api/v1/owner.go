package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ownerHeader carries the authenticated user id, set by the auth layer in
// front of this service.
const ownerHeader = "X-Owner-ID"

const ownerContextKey = "owner-id"

// ownerContext resolves the owner id from the request and stores it in the
// echo context. Every route in the v1 group is owner-scoped.
func ownerContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(ownerHeader)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing owner header")
		}
		ownerID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || ownerID <= 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid owner header")
		}
		c.Set(ownerContextKey, int32(ownerID))
		return next(c)
	}
}

func ownerID(c echo.Context) int32 {
	id, _ := c.Get(ownerContextKey).(int32)
	return id
}
