package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

const accessTokenType = "access"

var (
	// ErrInvalidToken covers malformed or badly signed tokens.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken indicates a well-formed token past its expiry.
	ErrExpiredToken = errors.New("jwt: token expired")
	// ErrWrongTokenType indicates a well-formed token of the wrong kind,
	// such as a refresh secret presented where an access token belongs.
	ErrWrongTokenType = errors.New("jwt: wrong token type")
)

// AccessTokenClaims carries the authenticated identity inside access tokens.
// The typ claim pins the token kind so token classes cannot be swapped.
type AccessTokenClaims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies RS256 access tokens.
type JWTManager struct {
	provider KeyProvider
	issuer   string
	ttl      time.Duration
}

// NewJWTManager constructs a manager for the supplied key provider. The ttl
// is taken as given; configuration loading guards against non-positive
// values, and tests rely on negative ttls to mint already-expired tokens.
func NewJWTManager(provider KeyProvider, issuer string, ttl time.Duration) *JWTManager {
	return &JWTManager{provider: provider, issuer: issuer, ttl: ttl}
}

// IssueAccessToken signs a short-lived access token for the user.
func (m *JWTManager) IssueAccessToken(userID, role string, issuedAt time.Time) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	issuedAt = issuedAt.UTC()

	claims := &AccessTokenClaims{
		UserID:    userID,
		Role:      role,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	kid, signingKey, err := m.provider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: get signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken verifies signature, expiry, issuer, and token type, and
// returns the claims.
func (m *JWTManager) ParseAccessToken(raw string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, m.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != accessTokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

func (m *JWTManager) verificationKey(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("jwt: missing kid header")
	}

	key, err := m.provider.GetVerificationKey(kid)
	if err != nil {
		return nil, fmt.Errorf("jwt: verification key: %w", err)
	}

	return key, nil
}
