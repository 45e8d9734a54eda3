package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/alumni-network/authz"
	"github.com/Dosada05/alumni-network/models"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	identityContextKey  contextKey = "identity"
)

// TokenManager выпускает и проверяет HS256 токены сессии.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// SessionClaims - содержимое токена. Role фиксируется на момент входа и
// используется только для логов, права строятся по записи пользователя.
type SessionClaims struct {
	UserID int             `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	claims := SessionClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid user_id claim: %d", claims.UserID)
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// браузер не может выставить заголовок при открытии websocket
	return r.URL.Query().Get("token")
}

// Authenticate проверяет токен, загружает пользователя и строит Principal для обработчиков.
func Authenticate(tokens *TokenManager, users repositories.UserRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "authentication token is required")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := r.Context()
			userID := claims.UserID
			user, err := users.GetByID(ctx, nil, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "user no longer exists")
					return
				}
				logger.Error("failed to load authenticated user", slog.Int("user_id", userID), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				return
			}

			principal, err := authz.PrincipalOf(user)
			if err != nil {
				logger.Warn("rejected inconsistent identity", slog.Int("user_id", userID), slog.Any("error", err))
				writeError(w, http.StatusForbidden, "account is in an inconsistent state")
				return
			}

			if claims.Role != user.Role {
				logger.Debug("role changed since token was issued", slog.Int("user_id", userID),
					slog.String("token_role", string(claims.Role)), slog.String("role", string(user.Role)))
			}

			ctx = context.WithValue(ctx, identityContextKey, user)
			ctx = context.WithValue(ctx, principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext возвращает участника, построенного Authenticate.
func PrincipalFromContext(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(authz.Principal)
	return p, ok
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityContextKey).(*models.User)
	return u, ok
}

// WithPrincipal нужен тестам обработчиков, минуя проверку токена.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
