package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/clipmarket/api"
	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
)

func TestLoggingMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})

	handler := api.LoggingMiddleware(next)
	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "ok" {
		t.Fatalf("unexpected body: %q", string(b))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.RequestID(r.Context())
	}))

	// generated when absent
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected generated id echoed in header, got ctx=%q header=%q", seen, w.Header().Get("X-Request-ID"))
	}

	// kept when sent
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if seen != "req-123" || w.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := api.CORSMiddleware(next)

	// OPTIONS should return 204 and not call next
	reqOpt := httptest.NewRequest(http.MethodOptions, "/cors", nil)
	wOpt := httptest.NewRecorder()
	handler.ServeHTTP(wOpt, reqOpt)
	resOpt := wOpt.Result()
	defer resOpt.Body.Close()
	if resOpt.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS, got %d", resOpt.StatusCode)
	}
	if got := resOpt.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected CORS header set, got %q", got)
	}

	// GET should pass through and set headers
	reqGet := httptest.NewRequest(http.MethodGet, "/cors", nil)
	wGet := httptest.NewRecorder()
	handler.ServeHTTP(wGet, reqGet)
	resGet := wGet.Result()
	defer resGet.Body.Close()
	if resGet.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for GET, got %d", resGet.StatusCode)
	}
	if got := resGet.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Fatalf("expected Allow-Headers to include Authorization, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	pan := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := api.RecoveryMiddleware(pan)
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", res.StatusCode)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error.Code != "operation_failed" {
		t.Fatalf("expected operation_failed envelope, got %+v (%v)", body, err)
	}
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuthMiddlewares(t *testing.T) {
	tokens := api.NewTokenIssuer(testSecret, time.Hour, 5*time.Minute)
	brand := &models.User{ID: 7, Email: "brand@example.com", AccountType: models.AccountBrand}

	full, err := tokens.Issue(brand, false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	pending, err := tokens.Issue(brand, true)
	if err != nil {
		t.Fatalf("issue pending: %v", err)
	}
	expired := signed(t, testSecret, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Minute).Unix()})
	foreign := signed(t, "other-secret", jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()})
	noUser := signed(t, testSecret, jwt.MapClaims{"email": "x@example.com", "exp": time.Now().Add(time.Hour).Unix()})

	const (
		required = iota
		allowPending
		optional
	)

	tests := []struct {
		name       string
		mode       int
		header     string
		wantStatus int
		wantUser   int64
	}{
		{"Required_MissingHeader", required, "", http.StatusUnauthorized, 0},
		{"Required_NotBearer", required, "Basic abc", http.StatusUnauthorized, 0},
		{"Required_EmptyBearer", required, "Bearer ", http.StatusUnauthorized, 0},
		{"Required_Garbage", required, "Bearer not.a.jwt", http.StatusUnauthorized, 0},
		{"Required_Expired", required, "Bearer " + expired, http.StatusUnauthorized, 0},
		{"Required_WrongSecret", required, "Bearer " + foreign, http.StatusUnauthorized, 0},
		{"Required_NoUserClaim", required, "Bearer " + noUser, http.StatusUnauthorized, 0},
		{"Required_Valid", required, "Bearer " + full, http.StatusOK, 7},
		{"Required_RejectsPending", required, "Bearer " + pending, http.StatusUnauthorized, 0},
		{"AllowPending_AcceptsPending", allowPending, "Bearer " + pending, http.StatusOK, 7},
		{"AllowPending_AcceptsFull", allowPending, "Bearer " + full, http.StatusOK, 7},
		{"Optional_Anonymous", optional, "", http.StatusOK, 0},
		{"Optional_Valid", optional, "Bearer " + full, http.StatusOK, 7},
		{"Optional_InvalidToken", optional, "Bearer " + expired, http.StatusUnauthorized, 0},
		{"Optional_RejectsPending", optional, "Bearer " + pending, http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got identity.Actor
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = identity.FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			var handler http.Handler
			switch tt.mode {
			case required:
				handler = api.JWTAuthMiddleware(tokens)(next)
			case allowPending:
				handler = api.MFAPendingAuthMiddleware(tokens)(next)
			default:
				handler = api.OptionalAuthMiddleware(tokens)(next)
			}

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d body=%s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got.UserID != tt.wantUser {
				t.Fatalf("expected user %d in context, got %d", tt.wantUser, got.UserID)
			}
			if tt.wantUser != 0 && got.AccountType != models.AccountBrand {
				t.Fatalf("expected account type to survive the round trip, got %q", got.AccountType)
			}
		})
	}
}
