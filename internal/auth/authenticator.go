package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/calmora/sessionhub/internal/domain"
	"github.com/calmora/sessionhub/internal/ierr"
	"github.com/golang-jwt/jwt/v5"
)

const audience = "sessionhub"

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Identity is the authenticated principal decoded from a verified token.
type Identity struct {
	UserId string
	Role   domain.Role
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)

	return identity, ok
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	tokenTTL  time.Duration
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, apiKeys []string, tokenTTL time.Duration) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(audience),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		tokenTTL:  tokenTTL,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) IssueToken(userId string, role domain.Role) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		Role: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}

	return a.secret, nil
}

// VerifyToken validates a signed token and returns the identity it carries.
// Expired, malformed and badly signed tokens all surface as Unauthenticated.
func (a *Authenticator) VerifyToken(tokenString string) (*Identity, error) {
	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid subject claim"))
	}

	return &Identity{
		UserId: subject,
		Role:   domain.Role(claims.Role),
	}, nil
}

func (a *Authenticator) VerifyAPIKey(apiKey string) error {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
