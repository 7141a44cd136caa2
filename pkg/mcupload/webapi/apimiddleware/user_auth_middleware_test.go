package apimiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestUsers() *UserCache {
	return NewUserCache(stor.NewFakeUserStor([]mcmodel.User{
		{ID: 1, Email: "one@test.com", ApiToken: "key-one"},
		{ID: 2, Email: "two@test.com", ApiToken: "key-two"},
	}))
}

// runAuth sends a request through UserAuth and returns the recorder and the
// user the wrapped handler saw.
func runAuth(t *testing.T, configure func(req *http.Request)) (*httptest.ResponseRecorder, *mcmodel.User) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	configure(req)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *mcmodel.User
	handler := UserAuth(UserAuthConfig{Secret: testSecret, Users: newTestUsers()})(func(c echo.Context) error {
		seen = c.Get(UserKey).(*mcmodel.User)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	return rec, seen
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) upload.ErrorResponse {
	t.Helper()

	var resp upload.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUserAuthBearerToken(t *testing.T) {
	token, err := GenerateToken(2, testSecret, time.Hour)
	require.NoError(t, err)

	rec, user := runAuth(t, func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, 2, user.ID)
}

func TestUserAuthAPIKey(t *testing.T) {
	tests := []struct {
		name      string
		configure func(req *http.Request)
	}{
		{"header", func(req *http.Request) { req.Header.Set("apikey", "key-one") }},
		{"query", func(req *http.Request) { req.URL.RawQuery = "apikey=key-one" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, user := runAuth(t, test.configure)
			assert.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, user)
			assert.Equal(t, 1, user.ID)
		})
	}
}

func TestUserAuthFailures(t *testing.T) {
	expired, err := GenerateToken(1, testSecret, -time.Minute)
	require.NoError(t, err)

	otherSecret, err := GenerateToken(1, []byte("other"), time.Hour)
	require.NoError(t, err)

	unknownUser, err := GenerateToken(99, testSecret, time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name      string
		configure func(req *http.Request)
		code      string
	}{
		{"no credentials", func(req *http.Request) {}, "NO_AUTH_TOKEN"},
		{"expired token", func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer "+expired) }, "INVALID_TOKEN"},
		{"wrong secret", func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer "+otherSecret) }, "INVALID_TOKEN"},
		{"unsigned token", func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer "+noneAlg) }, "INVALID_TOKEN"},
		{"garbage token", func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer not.a.jwt") }, "INVALID_TOKEN"},
		{"unknown user", func(req *http.Request) { req.Header.Set(echo.HeaderAuthorization, "Bearer "+unknownUser) }, "USER_NOT_FOUND"},
		{"unknown api key", func(req *http.Request) { req.Header.Set("apikey", "nope") }, "INVALID_TOKEN"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, user := runAuth(t, test.configure)
			assert.Nil(t, user)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			resp := decodeError(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, test.code, resp.Code)
			assert.NotEmpty(t, resp.Details)
			assert.NotZero(t, resp.Timestamp)
		})
	}
}

func TestUserAuthSkipper(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	called := false
	handler := UserAuth(UserAuthConfig{
		Skipper: func(echo.Context) bool { return true },
		Users:   newTestUsers(),
	})(func(c echo.Context) error {
		called = true
		return nil
	})

	require.NoError(t, handler(c))
	assert.True(t, called)
}

func TestUserCacheServesRepeatLookups(t *testing.T) {
	userStor := stor.NewFakeUserStor([]mcmodel.User{{ID: 7, ApiToken: "seven"}})
	cache := NewUserCache(userStor)

	byKey, err := cache.GetUserByAPIKey("seven")
	require.NoError(t, err)

	byID, err := cache.GetUserByID(7)
	require.NoError(t, err)
	assert.Same(t, byKey, byID)

	_, err = cache.GetUserByID(8)
	assert.Error(t, err)
}
