package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wristwatch-be/internal/auth"
	"wristwatch-be/internal/logger"
	"wristwatch-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func issue(t *testing.T, userID uint) string {
	t.Helper()
	token, err := auth.NewVerifier(testSecret).Issue(auth.Identity{UserID: userID, Role: auth.RoleUser}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRequire(t *testing.T) {
	a := NewAuth(auth.NewVerifier(testSecret))

	t.Run("Missing Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		w := httptest.NewRecorder()

		a.Require(http.HandlerFunc(okHandler)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var env utils.Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, auth.ErrMissingToken.Error(), env.Message)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		a.Require(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		a.Require(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, 1))
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFrom(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), userID)
			w.WriteHeader(http.StatusOK)
		})
		a.Require(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Valid Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: issue(t, 5)})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := auth.UserIDFrom(r.Context())
			assert.Equal(t, uint(5), userID)
			w.WriteHeader(http.StatusOK)
		})
		a.Require(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIdentify(t *testing.T) {
	a := NewAuth(auth.NewVerifier(testSecret))

	t.Run("Anonymous passes", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := auth.UserIDFrom(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/cart/verify-payment/ref", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()
		a.Identify(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Require reuses identity", func(t *testing.T) {
		calls := 0
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			userID, _ := auth.UserIDFrom(r.Context())
			assert.Equal(t, uint(9), userID)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, 9))
		w := httptest.NewRecorder()
		a.Identify(a.Require(next)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFrom(r.Context())
	})
	handler := logger.RequestIDMiddleware(logger.LoggingMiddleware(next))

	t.Run("Generates ID when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(logger.RequestIDHeader))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set(logger.RequestIDHeader, "test-id-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "test-id-123", seen)
	})
}

func TestCors(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000"})(http.HandlerFunc(okHandler))

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/cart/add", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestRateLimiter(t *testing.T) {
	t.Run("Strict tier on payment routes", func(t *testing.T) {
		l := NewRateLimiter("")
		handler := l.Middleware(http.HandlerFunc(okHandler))

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/cart/initialize-payment", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, http.StatusOK, codes[burstStrict-1])
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("Separate buckets per tier", func(t *testing.T) {
		l := NewRateLimiter("")
		handler := l.Middleware(http.HandlerFunc(okHandler))

		for i := 0; i < burstStrict; i++ {
			req := httptest.NewRequest(http.MethodGet, "/cart/verify-payment/ref", nil)
			req.RemoteAddr = "10.0.0.2:1234"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Internal key lifts payment route limits", func(t *testing.T) {
		l := NewRateLimiter("svc-key")
		handler := l.Middleware(http.HandlerFunc(okHandler))

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhook/paystack", nil)
			req.RemoteAddr = "10.0.0.4:1234"
			req.Header.Set(InternalAuthHeader, "svc-key")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}
		assert.Equal(t, http.StatusOK, codes[burstStrict])

		req := httptest.NewRequest(http.MethodPost, "/webhook/paystack", nil)
		req.Header.Set(InternalAuthHeader, "svc-key")
		limit, burst, tier := l.resolveTier(req)
		assert.Equal(t, limitInternal, limit)
		assert.Equal(t, burstInternal, burst)
		assert.Equal(t, "internal", tier)

		req.Header.Set(InternalAuthHeader, "wrong")
		_, _, tier = l.resolveTier(req)
		assert.Equal(t, "strict", tier)
	})

	t.Run("Client type header has no tier", func(t *testing.T) {
		l := NewRateLimiter("")
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-Client-Type", "frontend-heavy")
		_, _, tier := l.resolveTier(req)
		assert.Equal(t, "general", tier)
	})

	t.Run("Identity key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.RemoteAddr = "10.0.0.3:555"
		assert.Equal(t, "ip:10.0.0.3", identityKey(req))

		req.Header.Set("X-Device-ID", "dev-1")
		assert.Equal(t, "device:dev-1", identityKey(req))

		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 3}))
		assert.Equal(t, "user:3", identityKey(req))
	})

	t.Run("Sweep drops idle visitors", func(t *testing.T) {
		l := NewRateLimiter("")
		now := time.Now()
		l.now = func() time.Time { return now }
		l.getVisitor("ip:1:general", limitGeneral, burstGeneral)

		now = now.Add(visitorTTL + time.Second)
		l.sweep()

		assert.Empty(t, l.visitors)
	})
}
