package apimiddleware

import (
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/materials-commons/mcupload/pkg/mcupload/uperr"
)

// UserKey is the echo context key the authenticated *mcmodel.User is stored under.
const UserKey = "user"

const DefaultKeyname = "apikey"

type UserLookup interface {
	GetUserByAPIKey(apikey string) (*mcmodel.User, error)
	GetUserByID(id int) (*mcmodel.User, error)
}

type UserAuthConfig struct {
	Skipper middleware.Skipper

	// Keyname is the header or query param holding an API key.
	Keyname string

	// Secret verifies bearer tokens. When empty only API keys are accepted.
	Secret []byte

	Users UserLookup
}

// UserAuth authenticates a request with either an "Authorization: Bearer
// <jwt>" header, whose userId claim names the user, or an API key. Failures
// are answered with the upload error body and a 401.
func UserAuth(config UserAuthConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = middleware.DefaultSkipper
	}

	if config.Keyname == "" {
		config.Keyname = DefaultKeyname
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			started := time.Now()
			user, err := authenticate(config, c)
			if err != nil {
				uerr := uperr.Classify(err)
				log.WithFields(log.Fields{"code": uerr.Code, "path": c.Path()}).Infof("Rejected request: %s", uerr.Message)
				return c.JSON(uerr.Status, upload.NewErrorResponse(uerr, "", started))
			}

			c.Set(UserKey, user)
			return next(c)
		}
	}
}

func authenticate(config UserAuthConfig, c echo.Context) (*mcmodel.User, error) {
	if token, ok := bearerToken(c); ok {
		if len(config.Secret) == 0 {
			return nil, uperr.New(uperr.InvalidToken, "bearer tokens are not accepted")
		}

		userID, err := UserIDFromToken(token, config.Secret)
		if err != nil {
			return nil, uperr.Wrap(err, uperr.InvalidToken, "invalid token")
		}

		user, err := config.Users.GetUserByID(userID)
		if err != nil || user == nil {
			return nil, uperr.Wrap(err, uperr.UserNotFound, "user not found")
		}

		return user, nil
	}

	apikey := getAPIKeyFromRequest(config.Keyname, c)
	if apikey == "" {
		return nil, uperr.New(uperr.NoAuthToken, "no authorization token provided")
	}

	user, err := config.Users.GetUserByAPIKey(apikey)
	if err != nil || user == nil {
		return nil, uperr.Wrap(err, uperr.InvalidToken, "invalid api key")
	}

	return user, nil
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(header[len(prefix):]), true
}

func getAPIKeyFromRequest(key string, c echo.Context) string {
	if value := c.Request().Header.Get(key); value != "" {
		return value
	}

	return c.QueryParam(key)
}
