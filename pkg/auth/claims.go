package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// IdentityPayload captures the data placed in a minted identity token.
type IdentityPayload struct {
	Subject string
	Email   string
	Name    string
	Role    enums.AccountRole
}

// IdentityClaims is the token issued by the identity provider. The subject is
// the provider's stable user id and maps to accounts.external_subject.
type IdentityClaims struct {
	Email string            `json:"email"`
	Name  string            `json:"name,omitempty"`
	Role  enums.AccountRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// EffectiveRole treats a token without a role claim as a couple.
func (c *IdentityClaims) EffectiveRole() enums.AccountRole {
	if c == nil || c.Role == "" {
		return enums.AccountRoleCouple
	}
	return c.Role
}

func (c *IdentityClaims) NormalizedEmail() string {
	if c == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(c.Email))
}
