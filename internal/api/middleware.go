package api

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"mesaflow/internal/httpx"
)

type sessionInfo struct {
	UserID       string
	RestaurantID string
}

type ctxKey int

const sessionCtxKey ctxKey = 1

func withSession(ctx context.Context, s sessionInfo) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

func sessionFromContext(ctx context.Context) (sessionInfo, bool) {
	s, ok := ctx.Value(sessionCtxKey).(sessionInfo)
	return s, ok
}

func restaurantIDFromContext(ctx context.Context) (string, bool) {
	s, ok := sessionFromContext(ctx)
	if !ok || s.RestaurantID == "" {
		return "", false
	}
	return s.RestaurantID, true
}

// requireSession validates the Bearer token issued by the data service's auth
// (HS256, shared secret) and scopes the request to the restaurant claim.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		info, err := s.parseSessionToken(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if info.RestaurantID == "" {
			httpx.WriteError(w, http.StatusForbidden, "La sesión no tiene restaurante asignado")
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), info)))
	})
}

func (s *Server) parseSessionToken(raw string) (sessionInfo, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Baas.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return sessionInfo{}, err
	}

	info := sessionInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.UserID = sub
	}
	if rid, ok := claims["restaurant_id"].(string); ok {
		info.RestaurantID = rid
	} else if meta, ok := claims["app_metadata"].(map[string]any); ok {
		if rid, ok := meta["restaurant_id"].(string); ok {
			info.RestaurantID = rid
		}
	}
	if info.UserID == "" {
		return sessionInfo{}, errors.New("token without subject")
	}
	return info, nil
}

func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// requireWidgetKey authenticates public widget calls with "keyID.secret"
// credentials checked against the bcrypt hash in the local store.
func (s *Server) requireWidgetKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-Api-Key"))
		keyID, secret, ok := strings.Cut(raw, ".")
		if !ok || keyID == "" || secret == "" {
			httpx.WriteError(w, http.StatusUnauthorized, "API key inválida")
			return
		}

		var restaurantID, hash string
		err := s.db.QueryRowContext(r.Context(), `
			SELECT restaurant_id, secret_hash
			FROM widget_api_keys
			WHERE id = ? AND active = 1
			LIMIT 1
		`, keyID).Scan(&restaurantID, &hash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httpx.WriteError(w, http.StatusUnauthorized, "API key inválida")
				return
			}
			s.log.Errorw("widget key lookup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Error validando API key")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "API key inválida")
			return
		}

		info := sessionInfo{UserID: "widget:" + keyID, RestaurantID: restaurantID}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), info)))
	})
}

func (s *Server) rateLimitPublic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.RateLimitEnabled {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, retryAfter := s.limiter.Allow(clientIP(r)); !allowed {
			w.Header().Set("Retry-After", retryAfter.String())
			httpx.WriteError(w, http.StatusTooManyRequests, "Demasiadas peticiones")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found {
			return strings.TrimSpace(first)
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
