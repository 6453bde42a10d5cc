// Package policy provides the catalog of IAM permission bundles shared by the
// solution's execution roles.
//
// A bundle is a single policy statement: an effect, an ordered list of actions
// and an ordered list of resource patterns. Bundles are values; once built they
// cannot be changed, and accessors hand out copies.
//
//	policies := policy.NewCatalog(stack.Environment())
//	statement := policies.LogStatement.Statement()
package policy

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	. "github.com/lex00/wetwire-aws-catalog/intrinsics"
)

// Effect is the effect of a policy statement.
type Effect string

const (
	// EffectAllow grants the listed actions.
	EffectAllow Effect = "Allow"
	// EffectDeny explicitly denies the listed actions.
	EffectDeny Effect = "Deny"
)

// Bundle is an immutable permission grant attachable to an execution role.
type Bundle struct {
	effect    Effect
	actions   []string
	resources []string
}

// BuildBundle returns an Allow bundle over the given actions and resources.
//
// Action and resource strings are not checked; IAM rejects malformed entries
// when the policy is deployed.
func BuildBundle(actions, resources []string) Bundle {
	return newBundle(EffectAllow, actions, resources)
}

// BuildDenyBundle returns a Deny bundle over the given actions and resources.
func BuildDenyBundle(actions, resources []string) Bundle {
	return newBundle(EffectDeny, actions, resources)
}

func newBundle(effect Effect, actions, resources []string) Bundle {
	return Bundle{
		effect:    effect,
		actions:   slices.Clone(actions),
		resources: slices.Clone(resources),
	}
}

// Effect returns the statement effect.
func (b Bundle) Effect() Effect {
	return b.effect
}

// Actions returns a copy of the action identifiers, in declaration order.
func (b Bundle) Actions() []string {
	return slices.Clone(b.actions)
}

// Resources returns a copy of the resource patterns, in declaration order.
func (b Bundle) Resources() []string {
	return slices.Clone(b.resources)
}

// Services returns the distinct service prefixes of the bundle's actions
// ("logs", "s3", ...), in first-seen order.
func (b Bundle) Services() []string {
	return lo.Uniq(lo.Map(b.actions, func(action string, _ int) string {
		service, _, _ := strings.Cut(action, ":")
		return service
	}))
}

// Statement renders the bundle as a CloudFormation policy statement.
// Resource patterns that still hold deploy-time placeholders become Fn::Sub.
func (b Bundle) Statement() PolicyStatement {
	return PolicyStatement{
		Effect:   string(b.effect),
		Action:   lo.Map(b.actions, func(a string, _ int) any { return a }),
		Resource: lo.Map(b.resources, func(r string, _ int) any { return StringOrSub(r) }),
	}
}
