package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskr/internal/redact"
)

// Policy effects.
const (
	EffectAllow = "Allow"
	EffectDeny  = "Deny"
)

const (
	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"
	principalID   = "user"
	bearerPrefix  = "Bearer "
)

// Statement grants or denies one action on one resource.
type Statement struct {
	Action   string `json:"Action"`
	Effect   string `json:"Effect"`
	Resource string `json:"Resource"`
}

// PolicyDocument holds the statements of a Policy.
type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Policy is the outcome of an authorization decision.
type Policy struct {
	PrincipalID    string            `json:"principalId"`
	PolicyDocument PolicyDocument    `json:"policyDocument"`
	Context        map[string]string `json:"context,omitempty"`
}

// Allowed reports whether the policy grants access.
func (p Policy) Allowed() bool {
	if len(p.PolicyDocument.Statement) == 0 {
		return false
	}
	for _, st := range p.PolicyDocument.Statement {
		if st.Effect != EffectAllow {
			return false
		}
	}
	return true
}

// UserID returns the identity granted by an Allow policy.
func (p Policy) UserID() string {
	return p.Context["userId"]
}

// Validator verifies a bare token string.
type Validator interface {
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Authorizer turns an Authorization header into a Policy.
type Authorizer struct {
	validator Validator
	logger    *slog.Logger
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(validator Validator, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{validator: validator, logger: logger.With("component", "authorizer")}
}

// Authorize never fails: every error, including a panic during
// verification, produces a Deny policy for resource.
func (a *Authorizer) Authorize(ctx context.Context, rawHeader, resource string) (policy Policy) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "panic during token verification",
				"panic", redact.String(fmt.Sprint(r)),
				"resource", resource)
			policy = newPolicy(EffectDeny, resource, nil)
		}
	}()

	token := strings.TrimPrefix(strings.TrimSpace(rawHeader), bearerPrefix)
	claims, err := a.validator.ValidateToken(ctx, strings.TrimSpace(token))
	if err != nil {
		a.logger.InfoContext(ctx, "authorization denied",
			"reason", redact.Error(err),
			"resource", resource)
		return newPolicy(EffectDeny, resource, nil)
	}
	if claims == nil || claims.UserID == "" {
		a.logger.InfoContext(ctx, "authorization denied",
			"reason", ErrMissingIdentity.Error(),
			"resource", resource)
		return newPolicy(EffectDeny, resource, nil)
	}

	return newPolicy(EffectAllow, resource, map[string]string{"userId": claims.UserID})
}

func newPolicy(effect, resource string, ctx map[string]string) Policy {
	return Policy{
		PrincipalID: principalID,
		PolicyDocument: PolicyDocument{
			Version: policyVersion,
			Statement: []Statement{{
				Action:   invokeAction,
				Effect:   effect,
				Resource: resource,
			}},
		},
		Context: ctx,
	}
}
