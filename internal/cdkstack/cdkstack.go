// Package cdkstack is the AWS CDK provisioning collaborator.
//
// Explicit recipes become awslambda.LayerVersion constructs whose asset is
// bundled by running the recipe's command in its image. Auto-resolve recipes
// become PythonLayerVersion constructs, which resolve requirements themselves.
package cdkstack

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdklambdapythonalpha/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
)

// Provisioner registers layer recipes as constructs under a scope.
type Provisioner struct {
	scope constructs.Construct
	taken map[string]bool
}

// New returns a provisioner adding constructs to scope.
func New(scope constructs.Construct) *Provisioner {
	return &Provisioner{scope: scope, taken: make(map[string]bool)}
}

// Handle is a registered layer construct.
type Handle struct {
	id     string
	recipe layer.Recipe
	layer  awslambda.ILayerVersion
}

// ID returns the construct id.
func (h *Handle) ID() string { return h.id }

// Recipe returns a copy of the registered recipe.
func (h *Handle) Recipe() layer.Recipe { return h.recipe.Clone() }

// LayerVersion returns the construct, for attaching to functions.
func (h *Handle) LayerVersion() awslambda.ILayerVersion { return h.layer }

// Environment returns the identifiers of the enclosing stack. Values not known
// at synthesis are CDK tokens resolving to the pseudo parameters.
func (p *Provisioner) Environment() wetwire.Environment {
	return Environment(p.scope)
}

// RegisterLayer adds a layer construct for r. Registering the same recipe
// again adds another construct with a suffixed id.
func (p *Provisioner) RegisterLayer(r layer.Recipe) layer.Handle {
	id := p.allocate(lo.Ternary(r.ID == "", "Layer", r.ID))

	var lv awslambda.ILayerVersion
	switch r.Packaging.Kind {
	case layer.KindExplicit:
		lv = explicitLayer(p.scope, id, r)
	default:
		lv = autoResolveLayer(p.scope, id, r)
	}

	zap.L().Debug("registered layer construct",
		zap.String("constructId", id),
		zap.Stringer("packaging", r.Packaging.Kind))

	return &Handle{id: id, recipe: r.Clone(), layer: lv}
}

func (p *Provisioner) allocate(base string) string {
	id := base
	for n := 2; p.taken[id]; n++ {
		id = fmt.Sprintf("%s%d", base, n)
	}
	p.taken[id] = true
	return id
}

func explicitLayer(scope constructs.Construct, id string, r layer.Recipe) awslambda.ILayerVersion {
	return awslambda.NewLayerVersion(scope, jsii.String(id), &awslambda.LayerVersionProps{
		Code: awslambda.Code_FromAsset(jsii.String(r.SourcePath), &awss3assets.AssetOptions{
			Bundling: &awscdk.BundlingOptions{
				Image:   awscdk.DockerImage_FromRegistry(jsii.String(r.Packaging.Image)),
				Command: jsii.Strings(r.Packaging.Command...),
			},
		}),
		CompatibleRuntimes: runtimes(r),
		Description:        jsii.String(r.Description),
	})
}

func autoResolveLayer(scope constructs.Construct, id string, r layer.Recipe) awslambda.ILayerVersion {
	props := &awscdklambdapythonalpha.PythonLayerVersionProps{
		Entry:              jsii.String(r.SourcePath),
		CompatibleRuntimes: runtimes(r),
		Description:        jsii.String(r.Description),
	}
	if len(r.Packaging.Excludes) > 0 {
		props.Bundling = &awscdklambdapythonalpha.BundlingOptions{
			AssetExcludes: jsii.Strings(r.Packaging.Excludes...),
		}
	}
	return awscdklambdapythonalpha.NewPythonLayerVersion(scope, jsii.String(id), props)
}

func runtimes(r layer.Recipe) *[]awslambda.Runtime {
	out := lo.Map(r.Runtimes, func(rt layer.Runtime, _ int) awslambda.Runtime {
		if rt == layer.RuntimePython312 {
			return awslambda.Runtime_PYTHON_3_12()
		}
		return awslambda.NewRuntime(jsii.String(rt.String()), awslambda.RuntimeFamily_PYTHON, nil)
	})
	return &out
}

// Environment reads the partition, region and account of the stack owning scope.
func Environment(scope constructs.Construct) wetwire.Environment {
	st := awscdk.Stack_Of(scope)
	return wetwire.Environment{
		Partition: *st.Partition(),
		Region:    *st.Region(),
		Account:   *st.Account(),
	}
}

// PolicyStatement converts a bundle to a CDK policy statement.
func PolicyStatement(b policy.Bundle) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    lo.Ternary(b.Effect() == policy.EffectDeny, awsiam.Effect_DENY, awsiam.Effect_ALLOW),
		Actions:   jsii.Strings(b.Actions()...),
		Resources: jsii.Strings(b.Resources()...),
	})
}

// Attach adds every bundle of c to the role's default policy, in
// declaration order.
func Attach(role awsiam.IRole, c *policy.Catalog) {
	for _, nb := range c.Named() {
		role.AddToPrincipalPolicy(PolicyStatement(nb.Bundle))
	}
}
