// Package stack is the CloudFormation provisioning collaborator.
//
// A Stack records layer registrations and permission bundles, then
// synthesizes a CloudFormation template together with the manifest of layer
// assets the deployment engine has to package and upload:
//
//	s := stack.New("intelli-agent-shared", stack.WithEnvironment(env))
//	layers := layer.NewCatalog(s, cfg)
//	layers.CreateAll()
//	tmpl, assets, err := s.Synth()
package stack

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/asset"
	"github.com/lex00/wetwire-aws-catalog/internal/template"
	"github.com/lex00/wetwire-aws-catalog/intrinsics"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
	"github.com/lex00/wetwire-aws-catalog/resources/iam"
	"github.com/lex00/wetwire-aws-catalog/resources/lambda"
)

// DefaultAssetQualifier is the CDK bootstrap qualifier used when none is set.
const DefaultAssetQualifier = "hnb659fds"

// Option configures a Stack.
type Option func(*Stack)

// WithEnvironment sets the deployment environment.
func WithEnvironment(env wetwire.Environment) Option {
	return func(s *Stack) { s.env = env }
}

// WithAssetQualifier sets the bootstrap qualifier of the asset bucket.
func WithAssetQualifier(qualifier string) Option {
	return func(s *Stack) { s.qualifier = qualifier }
}

// WithDescription sets the template description.
func WithDescription(description string) Option {
	return func(s *Stack) { s.description = description }
}

// WithLogger sets the logger. The zap global logger is used otherwise.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stack) { s.logger = logger }
}

// Stack collects registrations for one CloudFormation template.
type Stack struct {
	name        string
	description string
	qualifier   string
	env         wetwire.Environment
	logger      *zap.Logger

	taken   map[string]bool
	layers  []*LayerHandle
	bundles []bundleEntry
}

type bundleEntry struct {
	id     string
	name   string
	bundle policy.Bundle
}

// New creates an empty stack.
func New(name string, opts ...Option) *Stack {
	s := &Stack{
		name:      name,
		qualifier: DefaultAssetQualifier,
		logger:    zap.L(),
		taken:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("stack", name))
	return s
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Environment returns the partition, region and account the stack deploys to.
func (s *Stack) Environment() wetwire.Environment {
	return s.env
}

// LayerHandle is the stack's record of one layer registration.
type LayerHandle struct {
	id     string
	recipe layer.Recipe
}

// ID returns the logical id of the layer resource.
func (h *LayerHandle) ID() string {
	return h.id
}

// Recipe returns a copy of the registered recipe.
func (h *LayerHandle) Recipe() layer.Recipe {
	return h.recipe.Clone()
}

// Ref references the layer version; CloudFormation resolves it to the ARN.
func (h *LayerHandle) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: h.id}
}

// RegisterLayer records a layer. Registering the same recipe again yields a
// new resource with a suffixed logical id.
func (s *Stack) RegisterLayer(r layer.Recipe) layer.Handle {
	h := &LayerHandle{
		id:     s.allocate(lo.Ternary(r.ID == "", "Layer", r.ID)),
		recipe: r.Clone(),
	}
	s.layers = append(s.layers, h)

	s.logger.Debug("registered layer",
		zap.String("logicalId", h.id),
		zap.String("source", r.SourcePath),
		zap.Stringer("packaging", r.Packaging.Kind))

	return h
}

// Layers returns the layer registrations in order.
func (s *Stack) Layers() []*LayerHandle {
	return append([]*LayerHandle(nil), s.layers...)
}

// AddBundle records a permission bundle as its own managed policy and returns
// the policy's logical id.
func (s *Stack) AddBundle(name string, b policy.Bundle) string {
	id := s.allocate(lo.PascalCase(name) + "Policy")
	s.bundles = append(s.bundles, bundleEntry{id: id, name: name, bundle: b})

	s.logger.Debug("added permission bundle",
		zap.String("logicalId", id),
		zap.Strings("services", b.Services()))

	return id
}

// AddCatalog adds every bundle of c in declaration order.
func (s *Stack) AddCatalog(c *policy.Catalog) []string {
	return lo.Map(c.Named(), func(nb policy.NamedBundle, _ int) string {
		return s.AddBundle(nb.Name, nb.Bundle)
	})
}

func (s *Stack) allocate(base string) string {
	id := base
	for n := 2; s.taken[id]; n++ {
		id = fmt.Sprintf("%s%d", base, n)
	}
	s.taken[id] = true
	return id
}

// Synth renders the template and the asset manifest. Every layer source
// directory must exist.
func (s *Stack) Synth() (*wetwire.Template, []wetwire.Asset, error) {
	builder := template.NewBuilder()
	builder.SetDescription(s.description)

	assets := make([]wetwire.Asset, 0, len(s.layers))
	for _, h := range s.layers {
		a, err := s.layerAsset(h)
		if err != nil {
			return nil, nil, err
		}
		assets = append(assets, a)

		if err := builder.Add(template.Entry{
			Name:     h.id,
			Resource: s.layerVersion(h.recipe, a),
			Metadata: assetMetadata(a),
		}); err != nil {
			return nil, nil, err
		}
		builder.AddOutput(h.id+"Arn", h.recipe.Description, h.Ref())
	}

	for _, e := range s.bundles {
		if err := builder.Add(template.Entry{
			Name: e.id,
			Resource: iam.ManagedPolicy{
				Description:    e.name,
				PolicyDocument: intrinsics.NewPolicyDocument(e.bundle.Statement()),
			},
		}); err != nil {
			return nil, nil, err
		}
	}

	tmpl, err := builder.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("synthesizing %s: %w", s.name, err)
	}

	s.logger.Info("synthesized stack",
		zap.Int("layers", len(s.layers)),
		zap.Int("policies", len(s.bundles)),
		zap.Stringer("environment", s.env))

	return tmpl, assets, nil
}

func (s *Stack) layerAsset(h *LayerHandle) (wetwire.Asset, error) {
	p := h.recipe.Packaging
	hash, err := asset.Fingerprint(h.recipe.SourcePath, p.Excludes, packagingSalt(h.recipe))
	if err != nil {
		return wetwire.Asset{}, fmt.Errorf("asset %s: %w", h.id, err)
	}

	return wetwire.Asset{
		LogicalID:  h.id,
		SourcePath: h.recipe.SourcePath,
		Hash:       hash,
		ObjectKey:  hash + ".zip",
		Packaging:  p.Kind.String(),
		Image:      p.Image,
		Command:    p.Command,
		Excludes:   p.Excludes,
	}, nil
}

// AssetBucket returns the bootstrap bucket layer bundles are uploaded to.
func (s *Stack) AssetBucket() string {
	return fmt.Sprintf("cdk-%s-assets-%s-%s", s.qualifier, s.env.AccountOrPseudo(), s.env.RegionOrPseudo())
}

func (s *Stack) layerVersion(r layer.Recipe, a wetwire.Asset) lambda.LayerVersion {
	return lambda.LayerVersion{
		CompatibleRuntimes: lo.Map(r.RuntimeNames(), func(n string, _ int) any { return n }),
		Description:        r.Description,
		Content: &lambda.LayerVersion_Content{
			S3Bucket: intrinsics.StringOrSub(s.AssetBucket()),
			S3Key:    a.ObjectKey,
		},
	}
}

func assetMetadata(a wetwire.Asset) map[string]any {
	return map[string]any{
		"aws:asset:path":       a.SourcePath,
		"aws:asset:property":   "Content",
		"aws:asset:is-bundled": true,
		"aws:asset:packaging":  a.Packaging,
	}
}

// packagingSalt ties the fingerprint to how the source is packaged, so a
// changed command or runtime yields a new object key.
func packagingSalt(r layer.Recipe) string {
	p := r.Packaging
	return strings.Join([]string{
		p.Kind.String(),
		p.Image,
		strings.Join(p.Command, " "),
		strings.Join(p.Excludes, ","),
		strings.Join(r.RuntimeNames(), ","),
	}, "|")
}
