package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload issued by the session collaborator.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	// Career scopes student analytics; empty for staff.
	Career string `json:"career,omitempty"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
