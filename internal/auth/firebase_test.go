package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-fanpush-service/internal/auth"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fbauth.Token), args.Error(1)
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The inner handler echoes the resolved identity.
	var gotUID string
	var gotOK bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID, gotOK = middleware.GetUserHandleFromContext(r.Context())
	})

	serve := func(v *mockVerifier, header string) {
		gotUID, gotOK = "", false
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		auth.NewFirebaseAuthMiddleware(v, logger)(inner).ServeHTTP(httptest.NewRecorder(), req)
	}

	t.Run("Valid token sets the uid", func(t *testing.T) {
		v := new(mockVerifier)
		v.On("VerifyIDToken", mock.Anything, "good-token").Return(&fbauth.Token{UID: "fan-44"}, nil)

		serve(v, "Bearer good-token")

		assert.True(t, gotOK)
		assert.Equal(t, "fan-44", gotUID)
	})

	t.Run("Invalid token stays anonymous", func(t *testing.T) {
		v := new(mockVerifier)
		v.On("VerifyIDToken", mock.Anything, "expired").Return(nil, errors.New("token expired"))

		serve(v, "Bearer expired")

		assert.False(t, gotOK)
	})

	t.Run("Missing header skips verification", func(t *testing.T) {
		v := new(mockVerifier)

		serve(v, "")
		assert.False(t, gotOK)

		serve(v, "Basic dXNlcjpwYXNz")
		assert.False(t, gotOK)

		v.AssertNotCalled(t, "VerifyIDToken", mock.Anything, mock.Anything)
	})
}
