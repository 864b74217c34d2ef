package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mediavault.org/internal/ids"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultIssuer     = "mediavault"
)

// Service issues, validates, rotates and revokes credentials for the
// single-tenant login flow. Access tokens are stateless HS256 JWTs;
// refresh tokens are opaque `<id>.<secret>` strings whose sha256 hash
// is persisted through a RefreshTokenStore.
type Service struct {
	store  RefreshTokenStore
	creds  CredentialVerifier
	secret []byte

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service. A missing signing secret is a
// configuration error the caller should treat as fatal.
func NewService(store RefreshTokenStore, creds CredentialVerifier, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	svc := &Service{
		store:      store,
		creds:      creds,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// Login validates the configured credential pair and mints a fresh
// session. There is no user directory; the user id is generated per
// login and travels inside both tokens.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidInput
	}
	if !s.creds.Verify(username, password) {
		return Session{}, ErrAuthenticationFailed
	}
	userID := uuid.NewString()
	return s.mintSession(ctx, userID, username)
}

// Refresh rotates the presented refresh token and issues a new session.
// The presented token never validates again once rotation succeeds: the
// store's conditional revoke guarantees exactly one winner when the
// same token is spent concurrently.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	tokenID, secret, err := splitRefreshToken(raw)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}

	record, err := s.store.Find(ctx, tokenID)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}
	if !record.Active(s.now()) {
		return Session{}, ErrInvalidRefreshToken
	}
	if !secureCompareHash(record.TokenHash, secret) {
		// Valid id with wrong secret smells like forgery; kill the
		// stored token too.
		_ = s.store.RevokeIfActive(ctx, record.ID, "", s.now())
		return Session{}, ErrInvalidRefreshToken
	}

	replacement, replacementString, err := s.newRefreshToken(record.UserID, record.Username)
	if err != nil {
		return Session{}, err
	}

	// Rotation point of truth: the loser of a concurrent refresh race
	// observes the already-revoked row here and fails validation.
	if err := s.store.RevokeIfActive(ctx, record.ID, replacement.ID, s.now()); err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, fmt.Errorf("revoke rotated token: %w", err)
	}
	if err := s.store.Create(ctx, replacement); err != nil {
		return Session{}, fmt.Errorf("persist rotated token: %w", err)
	}

	accessToken, accessExp, err := s.signAccessToken(record.UserID, record.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:           record.UserID,
		Username:         record.Username,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     replacementString,
		RefreshExpiresAt: replacement.ExpiresAt,
	}, nil
}

// Logout revokes every active refresh token of the user: an intentional
// all-sessions invalidation, not a single-device logout.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	_, err := s.store.RevokeAllForUser(ctx, userID, s.now())
	return err
}

// ValidateAccessToken verifies signature and expiry only; no store
// lookup is involved.
func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Username) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DeleteExpiredTokens drops tokens past their expiry; retention
// housekeeping for maintenance commands.
func (s *Service) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

func (s *Service) mintSession(ctx context.Context, userID, username string) (Session, error) {
	accessToken, accessExp, err := s.signAccessToken(userID, username)
	if err != nil {
		return Session{}, err
	}
	record, refreshString, err := s.newRefreshToken(userID, username)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return Session{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return Session{
		UserID:           userID,
		Username:         username,
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshString,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) signAccessToken(userID, username string) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) newRefreshToken(userID, username string) (*RefreshToken, string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", fmt.Errorf("generate refresh secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	sum := sha256.Sum256([]byte(secret))

	now := s.now().UTC()
	record := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		Username:  username,
		TokenHash: hex.EncodeToString(sum[:]),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	return record, record.ID + "." + secret, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
