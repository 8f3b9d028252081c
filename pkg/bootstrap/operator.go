package bootstrap

import (
	"github.com/golang-jwt/jwt/v5"
)

// DefaultOperator is shown when the token carries no usable name.
const DefaultOperator = "operator"

var operatorClaims = []string{"preferred_username", "username", "name", "sub"}

// Operator returns a display name for the holder of token. The token is
// parsed without verification; opaque tokens yield DefaultOperator.
func Operator(token string) string {
	if token == "" {
		return DefaultOperator
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return DefaultOperator
	}
	for _, name := range operatorClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return DefaultOperator
}
