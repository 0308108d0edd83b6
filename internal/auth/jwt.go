// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
)

const accessTokenType = "access"

// JWTManager signs ES256 access tokens and publishes the verifying key as a
// JWKS document. The key id is the key's SHA-256 thumbprint, so it is the
// same across restarts for the same PEM.
type JWTManager struct {
	signing   jwk.Key
	verifying jwk.Key
	jwks      jwk.Set
	keyID     string
	config    config.JWTConfig
	clock     core.Clock
}

func NewJWTManager(cfg config.JWTConfig, clock core.Clock) (*JWTManager, error) {
	raw, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	parsed, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	signing, keyID, err := prepareSigningKey(parsed)
	if err != nil {
		return nil, err
	}

	verifying, err := signing.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if err := verifying.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(verifying); err != nil {
		return nil, fmt.Errorf("add key to set: %w", err)
	}

	return &JWTManager{
		signing:   signing,
		verifying: verifying,
		jwks:      jwks,
		keyID:     keyID,
		config:    cfg,
		clock:     clock,
	}, nil
}

// prepareSigningKey stamps the algorithm and the thumbprint key id.
func prepareSigningKey(key jwk.Key) (jwk.Key, string, error) {
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, "", fmt.Errorf("set algorithm: %w", err)
	}

	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, "", fmt.Errorf("key thumbprint: %w", err)
	}
	keyID := base64.RawURLEncoding.EncodeToString(thumb)[:16]

	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, "", fmt.Errorf("set key id: %w", err)
	}
	return key, keyID, nil
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM files. The private
// file is owner-only.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	imported, err := jwk.Import(ecKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	private, _, err := prepareSigningKey(imported)
	if err != nil {
		return err
	}
	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	for _, out := range []struct {
		path string
		key  jwk.Key
		mode os.FileMode
	}{
		{privateKeyPath, private, 0o600},
		{publicKeyPath, public, 0o644},
	} {
		pem, err := jwk.Pem(out.key)
		if err != nil {
			return fmt.Errorf("encode %s: %w", out.path, err)
		}
		if err := os.WriteFile(out.path, pem, out.mode); err != nil {
			return fmt.Errorf("write %s: %w", out.path, err)
		}
	}

	return nil
}

// CreateAccessToken signs a short-lived access token for learnerID and
// returns it with its expiry.
func (m *JWTManager) CreateAccessToken(learnerID string) (string, time.Time, error) {
	issuedAt := m.clock.Now().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.config.AccessTokenExpire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(learnerID).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(expiresAt).
		Claim("type", accessTokenType).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signing))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

func (m *JWTManager) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), m.verifying),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(m.clock.Now)),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isExpired(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var kind string
	if err := token.Get("type", &kind); err != nil || kind != accessTokenType {
		return nil, fmt.Errorf("verify token: wrong token type: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", core.ErrTokenInvalid)
	}

	jti, _ := token.JwtID()
	expiresAt, _ := token.Expiration()

	return &middleware.AccessTokenClaims{
		LearnerID: subject,
		TokenID:   jti,
		ExpiresAt: expiresAt,
	}, nil
}

// isExpired matches the validation failure jwx reports for the exp claim.
func isExpired(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "exp") && strings.Contains(msg, "not satisfied")
}

func (m *JWTManager) GetJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body, err := json.Marshal(m.jwks)
		if err != nil {
			core.JSONError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(body)
	}
}

func (m *JWTManager) GetKeyID() string {
	return m.keyID
}

type RefreshTokenData struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
	FamilyID  string
}

// CreateRefreshToken mints an opaque refresh token. An empty familyID
// starts a new rotation family.
func (m *JWTManager) CreateRefreshToken(familyID string) (*RefreshTokenData, error) {
	token, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if familyID == "" {
		familyID = uuid.New().String()
	}

	return &RefreshTokenData{
		Token:     token,
		Hash:      core.HashToken(token),
		ExpiresAt: m.clock.Now().Add(m.config.RefreshTokenExpire),
		FamilyID:  familyID,
	}, nil
}
