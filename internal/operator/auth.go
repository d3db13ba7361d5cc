// ABOUTME: Operator authentication with bcrypt passwords and HS256 JWTs
// ABOUTME: Login verifies credentials and issues a bearer token for the console

package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// Auth errors
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
)

// Authenticator verifies operator credentials and issues bearer tokens.
type Authenticator struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. Pass nil logger for default.
func NewAuthenticator(st store.Store, secret []byte, tokenTTL time.Duration, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL == 0 {
		tokenTTL = 8 * time.Hour
	}
	return &Authenticator{
		store:    st,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger.With("component", "operator_auth"),
	}
}

// Login checks username and password and returns a signed token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	op, err := a.store.GetOperatorByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		a.logger.Warn("login failed", "username", username, "reason", "unknown user")
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("looking up operator: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("login failed", "username", username, "reason", "bad password")
		return "", ErrUnauthenticated
	}

	token, err := a.generate(op.ID)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	a.logger.Info("operator logged in", "operator_id", op.ID)
	return token, nil
}

// Register creates an operator account with a bcrypt-hashed password.
func (a *Authenticator) Register(ctx context.Context, op *store.Operator, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	op.PasswordHash = string(hash)
	return a.store.CreateOperator(ctx, op)
}

// Verify validates a bearer token and returns the operator id from the
// "sub" claim.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (a *Authenticator) generate(operatorID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": operatorID,
		"iat": now.Unix(),
		"exp": now.Add(a.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
