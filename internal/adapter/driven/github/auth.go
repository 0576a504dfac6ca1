package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"
)

// MaxJWTDuration is the maximum duration allowed for GitHub App JWTs.
// GitHub rejects JWTs with expiration longer than 10 minutes.
const MaxJWTDuration = 10 * time.Minute

// clockSkew backdates iat so a slightly fast GitHub clock still accepts the JWT.
const clockSkew = 60 * time.Second

// tokenRefreshLeeway makes installation tokens refresh this long before expiry.
const tokenRefreshLeeway = 5 * time.Minute

// tokenRequestTimeout bounds a single installation token exchange.
const tokenRequestTimeout = 30 * time.Second

// JWTGenerator generates JWT tokens for GitHub App authentication.
type JWTGenerator struct {
	appID      string
	privateKey *rsa.PrivateKey
	now        func() time.Time
}

// NewJWTGenerator creates a new JWT generator with the given App ID and private key PEM.
func NewJWTGenerator(appID int64, privateKeyPEM []byte) (*JWTGenerator, error) {
	if appID <= 0 {
		return nil, errors.New("app ID must be positive")
	}

	privateKey, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &JWTGenerator{
		appID:      strconv.FormatInt(appID, 10),
		privateKey: privateKey,
		now:        time.Now,
	}, nil
}

// GenerateToken creates a JWT valid for the given duration. Durations above
// MaxJWTDuration are rejected.
func (g *JWTGenerator) GenerateToken(duration time.Duration) (string, time.Time, error) {
	if duration <= 0 {
		return "", time.Time{}, errors.New("duration must be positive")
	}
	if duration > MaxJWTDuration {
		return "", time.Time{}, fmt.Errorf("duration %v exceeds maximum allowed %v", duration, MaxJWTDuration)
	}

	now := g.now()
	expiresAt := now.Add(duration)

	claims := jwt.RegisteredClaims{
		Issuer:    g.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-clockSkew)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(g.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Token implements oauth2.TokenSource so the generator can authenticate the
// app-level client directly.
func (g *JWTGenerator) Token() (*oauth2.Token, error) {
	// Stay under the 10 minute cap even after the iat backdating.
	signed, expiresAt, err := g.GenerateToken(MaxJWTDuration - clockSkew)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: signed, TokenType: "Bearer", Expiry: expiresAt}, nil
}

// parsePrivateKey parses a PEM-encoded RSA private key.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS#1 format first (RSA PRIVATE KEY)
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	// Try PKCS#8 format (PRIVATE KEY)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}

	return rsaKey, nil
}

// installationTokenSource exchanges the app JWT for an installation access
// token. It is always wrapped in a reuse source so the exchange only happens
// when the cached token is about to expire.
type installationTokenSource struct {
	app            *gh.Client
	installationID int64
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tokenRequestTimeout)
	defer cancel()

	tok, _, err := s.app.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating token for installation %d: %w", s.installationID, mapError(err))
	}

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "token",
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}

// newInstallationTokenSource returns a cached token source for one installation.
func newInstallationTokenSource(app *gh.Client, installationID int64) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, &installationTokenSource{
		app:            app,
		installationID: installationID,
	}, tokenRefreshLeeway)
}
