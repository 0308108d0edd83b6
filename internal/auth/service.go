// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrAlreadyClaimed     = errors.New("learner already claimed")
	ErrClaimedLearner     = errors.New("learner requires login")
	ErrSessionActive      = errors.New("guest session already active")
)

type LearnerInfo struct {
	ID           string
	Email        string
	PasswordHash string
}

func (i *LearnerInfo) Claimed() bool {
	return i.Email != ""
}

type LearnerProvider interface {
	EnsureAccount(ctx context.Context, id string) (*LearnerInfo, error)
	AccountByID(ctx context.Context, id string) (*LearnerInfo, error)
	AccountByEmail(ctx context.Context, email string) (*LearnerInfo, error)
	ClaimAccount(
		ctx context.Context,
		id, email, passwordHash string,
	) (*LearnerInfo, error)
}

// AccessTokenIssuer is the slice of JWTManager the service drives.
type AccessTokenIssuer interface {
	CreateAccessToken(learnerID string) (string, time.Time, error)
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*middleware.AccessTokenClaims, error)
	CreateRefreshToken(familyID string) (*RefreshTokenData, error)
}

// TokenBlacklist records access tokens revoked before they expire.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	repo      Repository
	jwt       AccessTokenIssuer
	learners  LearnerProvider
	blacklist TokenBlacklist
	clock     core.Clock
}

func NewService(
	repo Repository,
	jwt AccessTokenIssuer,
	learners LearnerProvider,
	blacklist TokenBlacklist,
	clock core.Clock,
) *Service {
	return &Service{
		repo:      repo,
		jwt:       jwt,
		learners:  learners,
		blacklist: blacklist,
		clock:     clock,
	}
}

// StartSession issues tokens for a guest learner, creating it on first
// visit. A claimed learner must log in instead. An existing guest cannot
// be resumed while any device still holds a live refresh token for it.
func (s *Service) StartSession(
	ctx context.Context,
	req SessionRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	if req.LearnerID != "" {
		existing, err := s.learners.AccountByID(ctx, req.LearnerID)
		switch {
		case err == nil && existing.Claimed():
			return nil, ErrClaimedLearner
		case err == nil:
			live, err := s.repo.HasLiveSession(ctx, existing.ID, s.clock.Now())
			if err != nil {
				return nil, fmt.Errorf("start session: %w", err)
			}
			if live {
				return nil, ErrSessionActive
			}
		case !errors.Is(err, core.ErrNotFound):
			return nil, fmt.Errorf("get learner: %w", err)
		}
	}

	learner, err := s.learners.EnsureAccount(ctx, req.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("ensure learner: %w", err)
	}

	return s.createAuthResponse(ctx, learner, userAgent, ipAddress, "", nil)
}

// Claim attaches credentials to the current guest learner and rotates every
// outstanding session.
func (s *Service) Claim(
	ctx context.Context,
	learnerID string,
	req ClaimRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	learner, err := s.learners.ClaimAccount(ctx, learnerID, req.Email, passwordHash)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			return nil, ErrEmailExists
		case errors.Is(err, core.ErrForbidden):
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("claim learner: %w", err)
	}

	revoked, err := s.repo.RevokeAllForLearner(ctx, learner.ID)
	if err != nil {
		return nil, fmt.Errorf("revoke guest sessions: %w", err)
	}
	slog.Info("learner claimed",
		"learner_id", learner.ID,
		"guest_sessions_revoked", revoked,
	)

	return s.createAuthResponse(ctx, learner, userAgent, ipAddress, "", nil)
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	learner, err := s.learners.AccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get learner: %w", err)
	}

	var stored *string
	if learner.PasswordHash != "" {
		stored = &learner.PasswordHash
	}

	valid, err := core.VerifyPasswordTimingSafe(req.Password, stored)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	return s.createAuthResponse(ctx, learner, userAgent, ipAddress, "", nil)
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes its whole family.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		s.revokeFamily(ctx, storedToken)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid(s.clock.Now()) {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	learner, err := s.learners.AccountByID(ctx, storedToken.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get learner: %w", err)
	}

	return s.createAuthResponse(
		ctx,
		learner,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		storedToken,
	)
}

// Logout revokes the refresh token and blacklists the access token that
// made the request for the rest of its lifetime.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if refreshToken != "" {
		storedToken, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find token: %w", err)
		case storedToken.LearnerID != claims.LearnerID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		default:
			if _, err := s.repo.RevokeSession(ctx, claims.LearnerID, storedToken.ID); err != nil {
				return fmt.Errorf("revoke token: %w", err)
			}
		}
	}

	return s.RevokeAccessToken(ctx, claims.TokenID, claims.ExpiresAt)
}

func (s *Service) LogoutAll(ctx context.Context, learnerID string) error {
	if _, err := s.repo.RevokeAllForLearner(ctx, learnerID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	if jti == "" {
		return nil
	}

	return s.blacklist.BlacklistToken(ctx, jti, expiresAt.Sub(s.clock.Now()))
}

// VerifyAccessToken checks the signature and then the logout blacklist.
// A Redis outage fails open so tutoring keeps working.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claims.TokenID == "" {
		return claims, nil
	}

	revoked, err := s.blacklist.IsTokenBlacklisted(ctx, claims.TokenID)
	if err != nil {
		slog.Warn("token blacklist unavailable", "error", err)
		return claims, nil
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	learnerID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.ListSessions(ctx, learnerID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	learnerID, sessionID string,
) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("find session: %w", core.ErrNotFound)
	}

	ok, err := s.repo.RevokeSession(ctx, learnerID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("revoke session: %w", core.ErrNotFound)
	}

	return nil
}

// PurgeExpired drops sessions that expired or were revoked before the
// cutoff.
func (s *Service) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.Prune(ctx, before)
}

func (s *Service) revokeFamily(ctx context.Context, token *RefreshToken) {
	if err := s.repo.RevokeFamily(ctx, token.FamilyID); err != nil {
		slog.Error("revoke token family failed",
			"family_id", token.FamilyID,
			"error", err,
		)
		return
	}
	slog.Warn("refresh token reuse detected",
		"learner_id", token.LearnerID,
		"family_id", token.FamilyID,
	)
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	learner *LearnerInfo,
	userAgent, ipAddress, familyID string,
	previous *RefreshToken,
) (*AuthResponse, error) {
	accessToken, accessExpiry, err := s.jwt.CreateAccessToken(learner.ID)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	session := &RefreshToken{
		ID:        uuid.New().String(),
		LearnerID: learner.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if previous != nil {
		if err := s.repo.Rotate(ctx, previous.ID, session); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				s.revokeFamily(ctx, previous)
				return nil, ErrTokenReuse
			}
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
	} else if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	resp := &AuthResponse{
		Learner: LearnerResponse{
			ID:      learner.ID,
			Claimed: learner.Claimed(),
		},
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(accessExpiry.Sub(s.clock.Now()).Seconds()),
			ExpiresAt:    accessExpiry,
		},
	}
	if learner.Claimed() {
		resp.Learner.Email = learner.Email
	}

	return resp, nil
}
