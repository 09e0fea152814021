package session

import (
	"errors"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/cache"
)

// Registry ties the entity cache lifecycle to the session identity: the
// cache is created once per session and cleared whenever the authenticated
// subject changes or logs out. Authentication itself is an external
// collaborator; only the token subject is read here.
type Registry struct {
	secret []byte
	logger *zap.Logger

	mu      sync.Mutex
	subject string
	cache   *cache.Cache
}

// NewRegistry wraps the given cache.
func NewRegistry(secret string, c *cache.Cache, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{secret: []byte(secret), cache: c, logger: logger}
}

// Subject validates the token and returns its subject claim.
func (r *Registry) Subject(tokenStr string) (string, error) {
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return "", err
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("token has no subject")
	}
	return subject, nil
}

// Observe records the identity behind a request. A change of subject drops
// every cached entry so one user never sees another's derived views.
func (r *Registry) Observe(tokenStr string) error {
	subject, err := r.Subject(tokenStr)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if subject != r.subject {
		if r.subject != "" {
			r.logger.Info("session identity changed, clearing cache",
				zap.String("subject", subject))
		}
		r.cache.Clear()
		r.subject = subject
	}
	return nil
}

// Reset clears the cache and forgets the identity. Used on logout.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Clear()
	r.subject = ""
}

// Current returns the observed subject, empty when none.
func (r *Registry) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subject
}
