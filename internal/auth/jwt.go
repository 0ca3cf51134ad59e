package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims accepted by JWTResolver.
type Claims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens signed with a shared secret.
type JWTResolver struct {
	secret []byte
	issuer string
}

// NewJWTResolver creates a resolver. An empty issuer accepts any issuer.
func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

// Resolve implements Resolver. The tenant claim is required; the subject,
// when present, becomes the actor.
func (r *JWTResolver) Resolve(_ context.Context, token string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized
	}
	if claims.Tenant == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{TenantID: claims.Tenant, ActorRef: claims.Subject}, nil
}

// Issue signs a token for the identity.
func (r *JWTResolver) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Tenant: id.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ActorRef,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Chain tries each resolver in order and returns the first identity.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, token string) (Identity, error) {
	for _, r := range c {
		id, err := r.Resolve(ctx, token)
		if err == nil {
			return id, nil
		}
	}
	return Identity{}, ErrUnauthorized
}
