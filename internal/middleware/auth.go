package middleware

import (
	"context"
	"net/http"

	"wristwatch-be/internal/auth"
	"wristwatch-be/internal/logger"
	"wristwatch-be/internal/utils"

	"go.uber.org/zap"
)

// Auth resolves the caller from the access_token cookie or a Bearer header.
type Auth struct {
	verifier *auth.Verifier
}

func NewAuth(verifier *auth.Verifier) *Auth {
	return &Auth{verifier: verifier}
}

// Identify attaches the caller's identity when a valid token is present and
// lets anonymous requests through untouched.
func (a *Auth) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractAccessToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := a.verifier.Parse(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r, id)))
	})
}

// Require rejects requests without a valid token with 401.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		id, err := a.verifier.Parse(auth.ExtractAccessToken(r))
		if err != nil {
			logger.FromCtx(r.Context()).Debug("request rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			utils.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r, id)))
	})
}

func withIdentity(r *http.Request, id auth.Identity) context.Context {
	ctx := auth.WithIdentity(r.Context(), id)
	return logger.WithUserID(ctx, id.UserID)
}
