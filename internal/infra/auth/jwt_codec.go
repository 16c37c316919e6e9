// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrInvalidToken is returned by Decode for any token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// jwtCodec is a concrete implementation of the TokenCodec interface using HS256 JWTs.
type jwtCodec struct {
	secret []byte // Secret key for signing every credential kind.
	parser *jwt.Parser
}

// NewJWTCodec is the constructor for jwtCodec.
// It takes configuration values to create a new token codec instance.
func NewJWTCodec(cfg *config.Config) (service.TokenCodec, error) {
	if cfg.Auth == nil || cfg.Auth.Secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return newJWTCodec([]byte(cfg.Auth.Secret)), nil
}

func newJWTCodec(secret []byte) *jwtCodec {
	return &jwtCodec{
		secret: secret,
		// Time claims are checked by the resolver against its own clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Encode signs the credential's claims.
func (c *jwtCodec) Encode(cred entity.Credential) (string, error) {
	claims := jwt.MapClaims{}
	for name, value := range entity.EncodeClaims(cred) {
		claims[string(name)] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// Decode verifies the signature and returns the raw claims.
func (c *jwtCodec) Decode(tokenString string) (entity.Claims, error) {
	claims := jwt.MapClaims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	decoded := make(entity.Claims, len(claims))
	for name, value := range claims {
		decoded[entity.Claim(name)] = value
	}

	return decoded, nil
}
