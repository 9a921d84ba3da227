package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/pkg/auth"
)

type contextKey string

const (
	ctxOperatorID contextKey = "operator_id"
	ctxLocationID contextKey = "location_id"
	ctxScopes     contextKey = "scopes"
)

// OperatorIDFromContext returns the authenticated operator, if any.
func OperatorIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxOperatorID).(uuid.UUID); ok && v != uuid.Nil {
		return &v
	}
	return nil
}

// LocationIDFromContext returns the location the operator token is bound to.
func LocationIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxLocationID).(uuid.UUID); ok && v != uuid.Nil {
		return &v
	}
	return nil
}

func ScopesFromContext(ctx context.Context) []auth.Scope {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxScopes).([]auth.Scope); ok {
		return v
	}
	return nil
}

// WithOperator seeds the context with the claims of an operator token.
func WithOperator(ctx context.Context, claims *auth.OperatorClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if claims == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxOperatorID, claims.OperatorID)
	if claims.LocationID != nil {
		ctx = context.WithValue(ctx, ctxLocationID, *claims.LocationID)
	}
	return context.WithValue(ctx, ctxScopes, claims.Scopes)
}
