package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/buildconfig"
	"github.com/lex00/wetwire-aws-catalog/internal/constants"
	"github.com/lex00/wetwire-aws-catalog/internal/deployenv"
	"github.com/lex00/wetwire-aws-catalog/internal/stack"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	partition  string
	region     string
	account    string
	lookup     bool
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&g.configPath, "config", "c", "", "Build config TOML file")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	f.StringVar(&g.partition, "partition", "", "AWS partition (default: derived from region)")
	f.StringVar(&g.region, "region", "", "AWS region (default: CDK_DEPLOY_REGION, CDK_DEFAULT_REGION)")
	f.StringVar(&g.account, "account", "", "AWS account (default: CDK_DEPLOY_ACCOUNT, CDK_DEFAULT_ACCOUNT)")
	f.BoolVar(&g.lookup, "lookup-account", false, "Ask STS for the account when none is configured")
}

// selection narrows what gets registered. Empty slices select everything.
type selection struct {
	policies []string
	layers   []string
}

func (s *selection) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.policies, "policies", nil, "Permission bundles to include (default: all)")
	cmd.Flags().StringSliceVar(&s.layers, "layers", nil, "Layer ids to include (default: all)")
}

// project is one assembled stack with both catalogs bound to it.
type project struct {
	cfg      buildconfig.Config
	stack    *stack.Stack
	policies *policy.Catalog
	layers   *layer.Catalog
}

func (g *globalFlags) load(ctx context.Context) (*project, error) {
	cfg, err := buildconfig.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	env, err := deployenv.Resolve(ctx, deployenv.Options{
		Partition: g.partition,
		Region:    g.region,
		Account:   g.account,
		Lookup:    g.lookup,
	})
	if err != nil {
		return nil, err
	}

	s := stack.New(cfg.StackName,
		stack.WithEnvironment(env),
		stack.WithAssetQualifier(cfg.AssetQualifier),
		stack.WithDescription(constants.SolutionName+" shared IAM policies and Lambda layers"),
		stack.WithLogger(zap.L()),
	)

	return &project{
		cfg:      cfg,
		stack:    s,
		policies: policy.NewCatalog(s.Environment()),
		layers: layer.NewCatalog(s, layer.Config{
			SourceRoot:   cfg.SourceRoot,
			PipOption:    cfg.LayerPipOption,
			SolutionName: constants.SolutionName,
		}),
	}, nil
}

// register adds the selected bundles and layers to the stack.
func (p *project) register(sel selection) error {
	named := p.policies.Named()
	if unknown := unknownNames(sel.policies, lo.Map(named, func(nb policy.NamedBundle, _ int) string { return nb.Name })); len(unknown) > 0 {
		return fmt.Errorf("unknown policies: %s", strings.Join(unknown, ", "))
	}

	factories := layerFactories(p.layers)
	if unknown := unknownNames(sel.layers, lo.Keys(factories)); len(unknown) > 0 {
		return fmt.Errorf("unknown layers: %s", strings.Join(unknown, ", "))
	}

	for _, r := range p.layers.Recipes() {
		if selected(sel.layers, r.ID) {
			factories[r.ID]()
		}
	}
	for _, nb := range named {
		if selected(sel.policies, nb.Name) {
			p.stack.AddBundle(nb.Name, nb.Bundle)
		}
	}
	return nil
}

// synth assembles a project, registers the selection and synthesizes it.
func (g *globalFlags) synth(ctx context.Context, sel selection) (*wetwire.Template, []wetwire.Asset, error) {
	p, err := g.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := p.register(sel); err != nil {
		return nil, nil, err
	}
	return p.stack.Synth()
}

func layerFactories(c *layer.Catalog) map[string]func() layer.Handle {
	return map[string]func() layer.Handle{
		"APIDefaultLambdaLayer":      c.CreateAPIDefaultLayer,
		"APILambdaEmbeddingLayer":    c.CreateEmbeddingLayer,
		"AgentFlowLayer":             c.CreateAgentFlowLayer,
		"APILambdaOnlineSourceLayer": c.CreateOnlineSourceLayer,
		"APILambdaJobSourceLayer":    c.CreateJobSourceLayer,
		"APILambdaAuthorizerLayer":   c.CreateAuthorizerLayer,
	}
}

func selected(names []string, name string) bool {
	return len(names) == 0 || lo.Contains(names, name)
}

func unknownNames(requested, known []string) []string {
	return lo.Without(lo.Uniq(requested), known...)
}
