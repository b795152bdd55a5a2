package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rewear/service_layer/internal/auth"
	"github.com/rewear/service_layer/pkg/logger"
)

func protectedHandler(t *testing.T, want Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			t.Fatal("no principal in context")
		}
		if p != want {
			t.Fatalf("expected principal %+v, got %+v", want, p)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, err := manager.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Auth(manager, logger.NewDefault("test"))(protectedHandler(t, Principal{UserID: "user-1", Role: "admin"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	other := auth.NewJWTManager("different-secret", time.Hour)
	expired := auth.NewJWTManager("secret", -time.Hour)

	foreignToken, _ := other.Issue("user-1", "user")
	expiredToken, _ := expired.Issue("user-1", "user")

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong key", "Bearer " + foreignToken},
		{"expired", "Bearer " + expiredToken},
	}

	handler := Auth(manager, logger.NewDefault("test"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler reached with invalid token")
	}))

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, resp.Code)
		}
	}
}
