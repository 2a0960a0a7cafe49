// Package middleware содержит HTTP middleware бэк-офиса партнёрской программы.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

type contextKey string

const (
	affiliateIDKey contextKey = "affiliateID"
	adminEmailKey  contextKey = "adminEmail"
)

const (
	sessionName       = "affiliate_session"
	sessionAffiliate  = "affiliate_id"
	sessionTTL        = 30 * 24 * time.Hour
	unauthorizedError = "No autorizado"
)

// AuthMiddleware проверяет сессию партнёра, хранящуюся в подписанном cookie.
type AuthMiddleware struct {
	store *sessions.CookieStore
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом secret ключ генерируется случайно,
// и сессии не переживают перезапуск сервиса.
func NewAuthMiddleware(secret string, secure bool) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	store := sessions.NewCookieStore(key)
	store.MaxAge(int(sessionTTL.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode

	return &AuthMiddleware{store: store}
}

// Middleware проверяет сессию и добавляет идентификатор партнёра в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.store.Get(r, sessionName)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		raw, ok := session.Values[sessionAffiliate].(string)
		if !ok {
			writeUnauthorized(w)
			return
		}

		affiliateID, err := uuid.Parse(raw)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), affiliateIDKey, affiliateID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSession выдаёт cookie сессии для указанного партнёра.
func (a *AuthMiddleware) SetSession(w http.ResponseWriter, r *http.Request, affiliateID uuid.UUID) error {
	// Повреждённый cookie заменяется новой сессией.
	session, _ := a.store.Get(r, sessionName)
	session.Values[sessionAffiliate] = affiliateID.String()
	return session.Save(r, w)
}

// ClearSession удаляет cookie сессии.
func (a *AuthMiddleware) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, sessionName)
	delete(session.Values, sessionAffiliate)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// GetAffiliateIDFromContext извлекает идентификатор партнёра из контекста запроса.
func GetAffiliateIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(affiliateIDKey).(uuid.UUID)
	return id, ok
}

// WithAffiliateID кладёт идентификатор партнёра в контекст.
func WithAffiliateID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, affiliateIDKey, id)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   unauthorizedError,
	})
}
