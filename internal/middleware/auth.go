package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/domain"
)

const userKey = "auth.user"

// Claims are issued by the identity service. The subject is the user id.
type Claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserProvisioner creates the local user row on first sight.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, user domain.User) error
}

const (
	provisionTTL        = 10 * time.Minute
	maxProvisionEntries = 10000
)

type Authenticator struct {
	secret []byte
	users  UserProvisioner
	logger *zap.Logger
	seen   *provisionMemo
}

func NewAuthenticator(secret string, users UserProvisioner, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		users:  users,
		logger: logger,
		seen:   newProvisionMemo(provisionTTL, maxProvisionEntries, time.Now),
	}
}

// Require rejects requests without a valid bearer token and stores the
// caller for CurrentUser.
func (a *Authenticator) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Authorization required"})
			return
		}

		user, err := a.parse(raw)
		if err != nil {
			a.logger.Debug("Rejected token", zap.String("trace_id", GetTraceID(c.Request.Context())), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			return
		}

		memo := user.ID + "|" + user.Email + "|" + string(user.Role)
		if !a.seen.recent(memo) {
			if err := a.users.EnsureUser(c.Request.Context(), user); err != nil {
				a.logger.Error("Failed to provision user", zap.String("user_id", user.ID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
				return
			}
			a.seen.add(memo)
		}

		c.Set(userKey, user)
		c.Next()
	}
}

func (a *Authenticator) parse(raw string) (domain.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.User{}, err
	}
	if claims.Subject == "" {
		return domain.User{}, errors.New("token has no subject")
	}

	role := claims.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.User{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// RequireRole must run after Require.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}

// NewToken signs an HS256 token for user. Used by local tooling and tests.
func NewToken(secret string, user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(secret))
}

// provisionMemo remembers identities already upserted, for at most ttl and
// at most limit entries. The upsert is idempotent, so forgetting is harmless.
type provisionMemo struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	now     func() time.Time
	entries map[string]time.Time
}

func newProvisionMemo(ttl time.Duration, limit int, now func() time.Time) *provisionMemo {
	return &provisionMemo{ttl: ttl, limit: limit, now: now, entries: make(map[string]time.Time)}
}

func (m *provisionMemo) recent(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.entries[key]
	if !ok {
		return false
	}
	if m.now().After(expires) {
		delete(m.entries, key)
		return false
	}
	return true
}

func (m *provisionMemo) add(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if len(m.entries) >= m.limit {
		for k, expires := range m.entries {
			if now.After(expires) {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.limit {
			clear(m.entries)
		}
	}
	m.entries[key] = now.Add(m.ttl)
}

func (m *provisionMemo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
