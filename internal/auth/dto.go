// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

// SessionRequest resumes a guest learner the client already knows about,
// or starts a new one when LearnerID is empty.
type SessionRequest struct {
	LearnerID string `json:"learner_id,omitempty" validate:"omitempty,uuid"`
}

type ClaimRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type LearnerResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Claimed bool   `json:"claimed"`
}

type AuthResponse struct {
	Learner LearnerResponse `json:"learner"`
	Tokens  TokenResponse   `json:"tokens"`
}

type SessionInfo struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}
