package apimiddleware

import (
	"net/http"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/labstack/echo/v4"
)

// RequireDataManager guards manager review routes. Admins pass any guard.
func RequireDataManager(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsDataManager() })
}

func RequireDirector(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsDirector() })
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsAdmin() })
}

func RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return requireRole(next, func(u *model.User) bool { return u.IsStaff() })
}

func requireRole(next echo.HandlerFunc, allowed func(*model.User) bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := GetUser(c)
		if user == nil {
			return echo.ErrUnauthorized
		}

		if !allowed(user) {
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role for this action")
		}

		return next(c)
	}
}
