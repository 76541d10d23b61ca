package apimiddleware

import (
	"fmt"
	"net/http"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// UserContextKey is where the authenticated user is stashed on the echo
// context for handlers to pick up.
const UserContextKey = "User"

type GetUserByAPIKeyFN func(string) (*model.User, error)

type APIKeyConfig struct {
	Skipper         middleware.Skipper
	Keyname         string
	GetUserByAPIKey GetUserByAPIKeyFN
}

// APIKeyAuth resolves the acting user from an API token carried in a
// header or query param and sets it on the request context. Inactive
// accounts are refused.
func APIKeyAuth(config APIKeyConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			value, err := getAPIKeyFromRequest(config.Keyname, c)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}

			user, err := config.GetUserByAPIKey(value)
			switch {
			case err != nil:
				return echo.ErrUnauthorized
			case user == nil:
				return echo.ErrUnauthorized
			case !user.IsActive:
				return echo.ErrUnauthorized
			default:
				c.Set(UserContextKey, *user)
				return next(c)
			}
		}
	}
}

// GetUser returns the authenticated user set by APIKeyAuth, or nil on an
// unauthenticated route.
func GetUser(c echo.Context) *model.User {
	user, ok := c.Get(UserContextKey).(model.User)
	if !ok {
		return nil
	}
	return &user
}

func getAPIKeyFromRequest(key string, c echo.Context) (string, error) {
	if value, err := keyFromHeader(key, c); err == nil {
		return value, nil
	}

	if value, err := keyFromQuery(key, c); err == nil {
		return value, nil
	}

	return "", fmt.Errorf("no apikey '%s' as query param or header", key)
}

func keyFromHeader(key string, c echo.Context) (string, error) {
	value := c.Request().Header.Get(key)
	if value == "" {
		return "", fmt.Errorf("no apikey '%s' as header", key)
	}
	return value, nil
}

func keyFromQuery(key string, c echo.Context) (string, error) {
	value := c.QueryParam(key)
	if value == "" {
		return "", fmt.Errorf("no apikey '%s' as query param", key)
	}
	return value, nil
}
