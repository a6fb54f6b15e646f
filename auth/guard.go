package auth

// Verdict is the outcome of an authorization check
type Verdict int

const (
	Deny Verdict = iota
	Allow
)

func (v Verdict) String() string {
	if v == Allow {
		return "allow"
	}
	return "deny"
}

// Authorize allows when requiredRole is empty or is one of claims.Roles.
// Roles do not imply each other: admin does not satisfy a trader check unless
// the token lists both. Nil claims are always denied.
func Authorize(claims *Claims, requiredRole string) Verdict {
	if claims == nil {
		return Deny
	}
	if requiredRole == "" || claims.HasRole(requiredRole) {
		return Allow
	}
	return Deny
}
