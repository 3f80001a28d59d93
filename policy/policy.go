// Package policy provides table-level access rules evaluated before a
// query or mutation reaches the database. Rules return one of three
// decisions: Allow terminates the chain and permits the operation, Deny
// terminates it and rejects, and Skip abstains and hands over to the next
// rule. An exhausted chain permits the operation.
package policy

import (
	"context"
	"errors"
	"fmt"
)

// Policy decision sentinel errors. Check them with errors.Is:
//
//	if errors.Is(err, policy.Deny) { ... }
var (
	// Allow terminates rule evaluation with an allow decision.
	Allow = errors.New("restql/policy: allow rule")

	// Deny terminates rule evaluation with a deny decision.
	Deny = errors.New("restql/policy: deny rule")

	// Skip abstains and continues to the next rule in the chain.
	Skip = errors.New("restql/policy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Op identifies the operation a rule is evaluated for.
type Op uint

// Operations.
const (
	OpFind Op = 1 << iota
	OpCount
	OpCreate
	OpUpdate
	OpDelete
)

var opNames = map[Op]string{
	OpFind: "find", OpCount: "count",
	OpCreate: "create", OpUpdate: "update", OpDelete: "delete",
}

// String returns the operation name.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Is reports whether op is contained in the given bitmask.
func (op Op) Is(mask Op) bool { return op&mask != 0 }

// Query describes a read operation under evaluation. Rules may append
// entries to Where to scope the result set, e.g. to the viewer's tenant.
type Query struct {
	Table string
	Op    Op
	Where map[string]any
}

// Mutation describes a write operation under evaluation. Rules may
// inspect and modify the record before it is validated.
type Mutation struct {
	Table  string
	Op     Op
	ID     any
	Record map[string]any
}

// Field returns the value of a record field.
func (m *Mutation) Field(name string) (any, bool) {
	v, ok := m.Record[name]
	return v, ok
}

type (
	// QueryRule decides whether a query is allowed and may modify it.
	QueryRule interface {
		EvalQuery(context.Context, *Query) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule decides whether a mutation is allowed and may modify it.
	MutationRule interface {
		EvalMutation(context.Context, *Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// QueryRuleFunc is an adapter allowing ordinary functions as query rules.
type QueryRuleFunc func(context.Context, *Query) error

// EvalQuery returns f(ctx, q).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, q *Query) error {
	return f(ctx, q)
}

// MutationRuleFunc is an adapter allowing ordinary functions as mutation
// rules.
type MutationRuleFunc func(context.Context, *Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m *Mutation) error {
	return f(ctx, m)
}

// OnMutationOperation evaluates the given rule only for the operations in
// the mask.
func OnMutationOperation(rule MutationRule, mask Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m *Mutation) error {
		if m.Op.Is(mask) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying the operations in the
// mask.
func DenyMutationOperationRule(mask Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m *Mutation) error {
		return Denyf("restql/policy: operation %s is not allowed", m.Op)
	})
	return OnMutationOperation(rule, mask)
}

// AllowMutationOperationRule returns a rule allowing the operations in
// the mask.
func AllowMutationOperationRule(mask Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, *Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, mask)
}

// AlwaysAllowRule returns a rule that always allows.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always denies.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context
// evaluation function. Returning nil is equivalent to Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, q *Query) error {
	return p.Query.EvalQuery(ctx, q)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, m *Mutation) error {
	return p.Mutation.EvalMutation(ctx, m)
}

// EvalQuery evaluates the chain. Skip and nil continue; Allow terminates
// with nil; anything else terminates with the decision.
func (policies QueryPolicy) EvalQuery(ctx context.Context, q *Query) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range policies {
		switch decision := rule.EvalQuery(ctx, q); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates the chain with the same semantics as EvalQuery.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m *Mutation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range policies {
		switch decision := rule.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext returns a context carrying a fixed policy decision,
// bypassing rule evaluation. Useful for privileged internal calls.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, *Query) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, *Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ *Query) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ *Mutation) error {
	return c.eval(ctx)
}
