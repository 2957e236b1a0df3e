package auth

import "github.com/golang-jwt/jwt/v5"

type User struct {
	ID                int64   `json:"-"`
	Email             string  `json:"email"`
	Token             string  `json:"token,omitempty"`
	Username          string  `json:"username"`
	Password          []byte  `json:"-"`
	PlaintextPassword string  `json:"-"`
	Bio               *string `json:"bio"`
	Image             *string `json:"image"`
}

type UserClaim struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`

	jwt.RegisteredClaims
}
