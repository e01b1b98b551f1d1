package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

const rolePolicyQuery = "data.pds.authz.allow"

// rolePolicy allows a request when the caller's role is in the route's allow-list.
// An empty allow-list denies everyone.
const rolePolicy = `package pds.authz

default allow := false

allow if {
	input.role != ""
	input.role in input.allowed
}
`

// RoleGuard evaluates route role allow-lists with an in-process OPA query prepared once at startup.
type RoleGuard struct {
	query rego.PreparedEvalQuery
}

// NewRoleGuard compiles the role policy. It fails only if the embedded policy does not compile.
func NewRoleGuard(ctx context.Context) (*RoleGuard, error) {
	q, err := rego.New(
		rego.Query(rolePolicyQuery),
		rego.Module("authz.rego", rolePolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare role policy: %w", err)
	}
	return &RoleGuard{query: q}, nil
}

// Allowed reports whether role is in allowed. Evaluation errors deny and are returned.
func (g *RoleGuard) Allowed(ctx context.Context, role string, allowed []string) (bool, error) {
	if allowed == nil {
		allowed = []string{}
	}
	input := map[string]interface{}{
		"role":    role,
		"allowed": allowed,
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval role policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("role policy returned no result")
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("role policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return v, nil
}

// HealthCheck verifies the prepared query still evaluates both an allow and a deny case.
// Does not touch the database.
func (g *RoleGuard) HealthCheck(ctx context.Context) error {
	ok, err := g.Allowed(ctx, "administrator", []string{"administrator"})
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("role policy denied a listed role")
	}
	ok, err = g.Allowed(ctx, "unprivileged", []string{"administrator"})
	if err != nil {
		return err
	}
	if ok {
		return errors.New("role policy allowed an unlisted role")
	}
	return nil
}
