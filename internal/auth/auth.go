// Package auth issues and verifies bearer sessions and hashes secrets.
//
// Employees get a session bound to their user id and role. External reviewers
// exchange an emailed access token for a short-lived session scoped to a single
// feedback request.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/YusovID/feedback-360-service/internal/clock"
	"github.com/YusovID/feedback-360-service/internal/config"
	"github.com/YusovID/feedback-360-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessTokenLength is the length of the token mailed to external reviewers.
const AccessTokenLength = 32

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

type Scope string

const (
	ScopeEmployee Scope = "employee"
	ScopeExternal Scope = "external"
)

type Claims struct {
	Scope     Scope       `json:"scope"`
	Role      domain.Role `json:"role,omitempty"`
	Email     string      `json:"email,omitempty"`
	RequestID int64       `json:"request_id,omitempty"`
	CycleID   int64       `json:"cycle_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the employee id carried in the subject.
func (c *Claims) UserID() (int64, error) {
	if c.Scope != ScopeEmployee {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return id, nil
}

type Issuer struct {
	secret      []byte
	issuer      string
	employeeTTL time.Duration
	externalTTL time.Duration
	clock       clock.Clock
}

func NewIssuer(cfg config.Auth, clk clock.Clock) *Issuer {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Issuer{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		employeeTTL: cfg.SessionTTL,
		externalTTL: cfg.ExternalSessionTTL,
		clock:       clk,
	}
}

func (i *Issuer) Employee(u *domain.User) (string, time.Time, error) {
	return i.sign(Claims{
		Scope: ScopeEmployee,
		Role:  u.Role,
		Email: u.Email,
	}, strconv.FormatInt(u.ID, 10), i.employeeTTL)
}

func (i *Issuer) External(email string, requestID, cycleID int64) (string, time.Time, error) {
	return i.sign(Claims{
		Scope:     ScopeExternal,
		Email:     domain.NormalizeEmail(email),
		RequestID: requestID,
		CycleID:   cycleID,
	}, domain.NormalizeEmail(email), i.externalTTL)
}

func (i *Issuer) sign(claims Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.Now()
	expires := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expires, nil
}

// Parse verifies signature, issuer and lifetime.
func (i *Issuer) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Scope != ScopeEmployee && claims.Scope != ScopeExternal {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashed), nil
}

// CheckPassword reports whether secret matches the bcrypt hash. An empty hash never matches.
func CheckPassword(hash, secret string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// NewAccessToken returns a random alphanumeric token of AccessTokenLength characters.
func NewAccessToken() (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, AccessTokenLength)

	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate access token: %w", err)
		}

		buf[i] = alphabet[n.Int64()]
	}

	return string(buf), nil
}
