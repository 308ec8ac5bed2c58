package jwttoken

import (
	"pacto/internal/platform/middleware"
)

// JWTServiceAdapter exposes JWTService through the middleware.JWTValidator
// interface without the middleware importing this package.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}
