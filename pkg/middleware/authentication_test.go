package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	fctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	token  string
	claims UserClaims
}

func (s stubVerifier) Verify(_ context.Context, raw string) (UserClaims, error) {
	if raw != s.token {
		return UserClaims{}, errors.New("signature mismatch")
	}
	return s.claims, nil
}

func quietLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newAuthEcho(verifier TokenVerifier, seen *string) *echo.Echo {
	e := newEcho()
	e.GET("/secure", func(c echo.Context) error {
		*seen = fctx.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}, Authentication(quietLogger(), verifier))
	return e
}

func authGet(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthentication(t *testing.T) {
	verifier := stubVerifier{token: "good", claims: UserClaims{Sub: "staff-7", Email: "desk@gym.test"}}

	t.Run("valid token sets user id", func(t *testing.T) {
		var seen string
		rec := authGet(newAuthEcho(verifier, &seen), "Bearer good")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "staff-7", seen)
	})

	t.Run("missing header", func(t *testing.T) {
		var seen string
		rec := authGet(newAuthEcho(verifier, &seen), "")

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "missing bearer", body.Message)
		assert.Empty(t, seen)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		var seen string
		assert.Equal(t, http.StatusUnauthorized, authGet(newAuthEcho(verifier, &seen), "Basic good").Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		var seen string
		rec := authGet(newAuthEcho(verifier, &seen), "Bearer forged")

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid token", body.Message)
		assert.Empty(t, seen)
	})
}

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/auth",
			"token_endpoint":                        srv.URL + "/token",
			"jwks_uri":                              srv.URL + "/keys",
			"userinfo_endpoint":                     srv.URL + "/userinfo",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOIDCVerifier(t *testing.T) {
	srv := newDiscoveryServer(t)

	verifier, err := NewOIDCVerifier(context.Background(), srv.URL, "fern")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestNewOIDCVerifier_UnknownIssuer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewOIDCVerifier(context.Background(), srv.URL, "fern")
	assert.Error(t, err)
}
