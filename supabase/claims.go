package supabase

import "github.com/theflex/pms-backend/tenant"

// Subject returns the user ID (sub claim)
func Subject(claims tenant.ClaimSet) string {
	return stringClaim(claims, "sub")
}

// Email returns the email claim
func Email(claims tenant.ClaimSet) string {
	return stringClaim(claims, "email")
}

// Role returns the Postgres role the token was issued for, e.g. "authenticated"
func Role(claims tenant.ClaimSet) string {
	return stringClaim(claims, "role")
}

func stringClaim(claims tenant.ClaimSet, key string) string {
	s, _ := claims[key].(string)
	return s
}
