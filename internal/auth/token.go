// Package auth mints and reads the session token stored under the "token" key.
//
// The token is an unsigned JWT. It carries the user id and issue time so that
// every login produces a different value, and it proves nothing: anyone with
// access to the local store can forge one. Real authentication is out of scope.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// MintToken returns a fresh session token for userID issued at now.
func MintToken(userID string, now time.Time) (string, error) {
	nonce, err := common.MakeRandHexString(8)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       nonce,
		},
		UserID: userID,
	})

	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}
	return s, nil
}

// ParseToken returns the user id a session token was minted for.
// Anything that is not a well-formed token naming a user yields
// common.ErrInvalidToken.
func ParseToken(tokenString string) (string, error) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.UserID == "" || claims.UserID != claims.Subject {
		return "", common.ErrInvalidToken
	}

	return claims.UserID, nil
}
