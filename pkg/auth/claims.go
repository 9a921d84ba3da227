package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope grants access to a family of inventory operations.
type Scope string

const (
	ScopeUnitsRead      Scope = "units:read"
	ScopeUnitsWrite     Scope = "units:write"
	ScopeTransfersWrite Scope = "transfers:write"
)

var validScopes = []Scope{ScopeUnitsRead, ScopeUnitsWrite, ScopeTransfersWrite}

// IsValid reports whether the scope is known.
func (s Scope) IsValid() bool {
	return slices.Contains(validScopes, s)
}

// OperatorTokenPayload captures the data available when minting a JWT.
type OperatorTokenPayload struct {
	OperatorID uuid.UUID
	LocationID *uuid.UUID
	Scopes     []Scope
	JTI        string
}

// OperatorClaims represents the typed JWT presented by scanners and POS terminals.
type OperatorClaims struct {
	OperatorID uuid.UUID  `json:"operator_id"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	Scopes     []Scope    `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *OperatorClaims) HasScope(scope Scope) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Scopes, scope)
}
