package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humon/server/internal/model"
)

type fakeAuthenticator struct {
	users map[string]model.User
	calls int
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (model.User, error) {
	f.calls++
	u, ok := f.users[token]
	if !ok {
		return model.User{}, errors.New("unauthorized")
	}
	return u, nil
}

func protected(authenticator Authenticator) http.Handler {
	return Authorize(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-User-ID", "ok")
		_, _ = w.Write([]byte(user.DeviceToken))
	}))
}

func TestAuthorize(t *testing.T) {
	authn := &fakeAuthenticator{users: map[string]model.User{
		"good-token": {ID: 7, DeviceToken: "device-7"},
	}}

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
	}{
		{name: "auth-token header", header: AuthTokenHeader, value: "good-token", wantCode: http.StatusOK},
		{name: "bearer header", header: "Authorization", value: "Bearer good-token", wantCode: http.StatusOK},
		{name: "missing", wantCode: http.StatusUnauthorized},
		{name: "unknown token", header: AuthTokenHeader, value: "nope", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Authorization", value: "Basic good-token", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()

			protected(authn).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "device-7", rec.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestAuthorize_MissingTokenSkipsLookup(t *testing.T) {
	authn := &fakeAuthenticator{}
	rec := httptest.NewRecorder()

	protected(authn).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, authn.calls)
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), model.User{ID: 3})
	u, ok := GetUser(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), u.ID)

	_, ok = GetUser(context.Background())
	assert.False(t, ok)
}
