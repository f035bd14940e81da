package v1

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "shopledger/internal/core/context"
	"shopledger/internal/domain/auth"
	"shopledger/pkg/logger"
)

type tokenMap map[string]*appctx.UserContext

func (m tokenMap) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := m[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestRouter_AccessControl(t *testing.T) {
	router := NewRouter(RouterConfig{
		Logger: logger.NewNop(),
		DB:     okPinger{},
		JWTValidator: tokenMap{
			"reader": {UserID: "u1", Permissions: []string{auth.PermCustomerRead, auth.PermCreditRead}},
			"nobody": {UserID: "u2"},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"ready is public", http.MethodGet, "/ready", "", http.StatusOK},
		{"customers need token", http.MethodGet, "/api/v1/customers", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/customers", "forged", http.StatusUnauthorized},
		{"me needs token", http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized},
		{"customers need permission", http.MethodGet, "/api/v1/customers", "nobody", http.StatusForbidden},
		{"payments need write", http.MethodPost, "/api/v1/credit/payments/order", "reader", http.StatusForbidden},
		{"balance payments need write", http.MethodPost, "/api/v1/credit/payments/balance", "reader", http.StatusForbidden},
		{"customer create needs write", http.MethodPost, "/api/v1/customers", "reader", http.StatusForbidden},
		{"reports need permission", http.MethodGet, "/api/v1/reports/dashboard", "reader", http.StatusForbidden},
		{"activity needs permission", http.MethodGet, "/api/v1/activity", "reader", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", "reader", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
