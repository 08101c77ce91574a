package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/handlers"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/services"
)

type stubAuth struct {
	services.AuthService
	users map[string]*models.User
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if token == "boom" {
		return nil, fmt.Errorf("database is locked")
	}
	user, ok := s.users[token]
	if !ok {
		return nil, fmt.Errorf("%w: bad token", pkg.ErrUnauthorized)
	}
	return user, nil
}

func chain() http.Handler {
	auth := NewAuthMiddleware(&stubAuth{users: map[string]*models.User{
		"admin-token":  {ID: 1, Username: "admin", Role: models.RoleAdmin},
		"viewer-token": {ID: 2, Username: "ana", Role: models.RoleViewer},
	}})
	return auth.Require(NewAdminMiddleware().Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := handlers.CurrentUser(r)
		pkg.JSON(w, http.StatusOK, user.Username)
	})))
}

func TestAuthAndAdminChain(t *testing.T) {
	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"no header", "", http.StatusUnauthorized, pkg.CodeMissingToken},
		{"not bearer", "Basic abc", http.StatusUnauthorized, pkg.CodeMissingToken},
		{"empty bearer", "Bearer  ", http.StatusUnauthorized, pkg.CodeMissingToken},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, pkg.CodeInvalidToken},
		{"store failure", "Bearer boom", http.StatusInternalServerError, ""},
		{"viewer", "Bearer viewer-token", http.StatusForbidden, ""},
		{"admin", "Bearer admin-token", http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			chain().ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			var resp pkg.APIResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.code, resp.ErrorCode)
			if tc.status == http.StatusOK {
				assert.Equal(t, "admin", resp.Data)
			}
		})
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	m := metrics.New()
	h := RequestLogger(zap.NewNop(), m, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "418")))
}
