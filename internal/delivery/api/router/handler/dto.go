// Package handler contains the HTTP handlers for the application.
package handler

import (
	"time"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
)

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Username    *string     `json:"username,omitempty"`
	PhoneNumber *string     `json:"phoneNumber,omitempty"`
	Role        entity.Role `json:"role"`
}

// SessionResponse is returned by every flow that opens a session.
type SessionResponse struct {
	Token      string            `json:"token"`
	Credential entity.Descriptor `json:"credential"`
	User       *UserResponse     `json:"user"`
}

// APIKeyResponse describes a key without its token.
type APIKeyResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Scopes    entity.ScopeSet `json:"scopes"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func toUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}

	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		PhoneNumber: user.PhoneNumber,
		Role:        user.RoleID,
	}
}

func toSessionResponse(out *usecase.SessionOutput) *SessionResponse {
	return &SessionResponse{
		Token:      out.Token,
		Credential: out.Credential,
		User:       toUserResponse(out.User),
	}
}

func toAPIKeyResponse(key entity.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Scopes:    key.Scopes,
		CreatedAt: key.Issued,
		ExpiresAt: key.Expiry,
	}
}
