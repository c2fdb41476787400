package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	HeaderCallerID = "X-Caller-Id"
	HeaderAPIKey   = "X-API-Key"
)

var (
	ErrMissingCredentials = errors.New("missing caller credentials")
	ErrInvalidToken       = errors.New("invalid caller token")
	ErrTokenExpired       = errors.New("caller token expired")
)

type ctxKey struct{}

// Verifier emite e confere tokens de chamador: JWT HS256 com sub = caller id
// e exp obrigatório. O token prova que quem chama controla a identidade que
// declara no header.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Verifier)

func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.now = now } }

func NewVerifier(secret string, ttl time.Duration, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Verifier) Issue(callerID string) (string, error) {
	if callerID == "" {
		return "", ErrMissingCredentials
	}
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   callerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign caller token: %w", err)
	}
	return signed, nil
}

func (v *Verifier) Verify(callerID, token string) error {
	if callerID == "" || token == "" {
		return ErrMissingCredentials
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(callerID),
		jwt.WithTimeFunc(v.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// Middleware exige X-Caller-Id + Authorization: Bearer <token> válidos
// e coloca o caller verificado no contexto da requisição.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(HeaderCallerID))
		if err := v.Verify(caller, bearer(r)); err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

// CallerFrom devolve o caller verificado pelo Middleware
func CallerFrom(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(ctxKey{}).(string)
	return c, ok && c != ""
}

// ServiceKey protege rotas serviço-a-serviço (ex: wallet /transfer).
// key vazia desliga a checagem, útil só em ambiente local.
func ServiceKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearer(r)
			if token == "" {
				token = strings.TrimSpace(r.Header.Get(HeaderAPIKey))
			}
			if token == "" {
				writeUnauthorized(w, "missing service key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				writeUnauthorized(w, "invalid service key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "UNAUTHORIZED"})
}
