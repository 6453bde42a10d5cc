package layer

import (
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Config carries the values the catalog takes from its collaborators.
type Config struct {
	// SourceRoot is the directory holding the lambda/ source tree.
	SourceRoot string
	// PipOption is inserted verbatim into pip install (e.g. an extra index URL).
	PipOption string
	// SolutionName prefixes some layer descriptions.
	SolutionName string
}

var pipInstall = template.Must(template.New("pip-install").
	Funcs(sprig.TxtFuncMap()).
	Parse(`pip install -r requirements.txt {{ if not (empty .PipOption) }}{{ .PipOption }} {{ end }}-t /asset-output/python`))

// onlineExcludes keeps caches and sample data out of the online source layer.
var onlineExcludes = []string{
	"*.pyc",
	"*/__pycache__/*",
	"*.xls",
	"*.xlsx",
	"*.csv",
	"*.png",
	"lambda_main/retail/size/*",
}

// Catalog holds the six layer recipes and registers them on demand.
type Catalog struct {
	provisioner Provisioner

	apiDefault   Recipe
	embedding    Recipe
	agentFlow    Recipe
	onlineSource Recipe
	jobSource    Recipe
	authorizer   Recipe
}

// NewCatalog builds the recipes from cfg. Nothing is registered until a
// factory method is called.
func NewCatalog(p Provisioner, cfg Config) *Catalog {
	command := []string{"bash", "-c", renderPipInstall(cfg.PipOption)}
	source := func(parts ...string) string {
		return filepath.Join(append([]string{cfg.SourceRoot, "lambda"}, parts...)...)
	}

	return &Catalog{
		provisioner: p,
		apiDefault: explicitRecipe("APIDefaultLambdaLayer", source("layer", "api"), command,
			cfg.SolutionName+" - Default API layer"),
		embedding: explicitRecipe("APILambdaEmbeddingLayer", source("embedding"), command,
			"LLM Bot - API layer"),
		agentFlow: explicitRecipe("AgentFlowLayer", source("layer", "agent-flow"), command,
			cfg.SolutionName+" - Agent Flow layer"),
		onlineSource: autoRecipe("APILambdaOnlineSourceLayer", source("online"),
			"Intelli agent - Online Source layer", onlineExcludes),
		jobSource: autoRecipe("APILambdaJobSourceLayer", source("job", "dep", "llm_bot_dep"),
			"Intelli agent - Job Source layer", nil),
		authorizer: autoRecipe("APILambdaAuthorizerLayer", source("authorizer"),
			"Intelli agent - Authorizer layer", nil),
	}
}

// renderPipInstall renders the fixed pip template. The template and its input
// type never change, so a failure here is a programming error.
func renderPipInstall(option string) string {
	var sb strings.Builder
	if err := pipInstall.Execute(&sb, struct{ PipOption string }{option}); err != nil {
		panic("layer: rendering pip install command: " + err.Error())
	}
	return sb.String()
}

func explicitRecipe(id, sourcePath string, command []string, description string) Recipe {
	return Recipe{
		ID:          id,
		SourcePath:  sourcePath,
		Runtimes:    []Runtime{RuntimePython312},
		Description: description,
		Packaging: Packaging{
			Kind:    KindExplicit,
			Image:   RuntimePython312.BundlingImage(),
			Command: command,
		},
	}
}

func autoRecipe(id, sourcePath, description string, excludes []string) Recipe {
	return Recipe{
		ID:          id,
		SourcePath:  sourcePath,
		Runtimes:    []Runtime{RuntimePython312},
		Description: description,
		Packaging: Packaging{
			Kind:     KindAutoResolve,
			Excludes: excludes,
		},
	}
}

func (c *Catalog) register(r Recipe) Handle {
	return c.provisioner.RegisterLayer(r.Clone())
}

// CreateAPIDefaultLayer registers the API default dependencies layer.
func (c *Catalog) CreateAPIDefaultLayer() Handle {
	return c.register(c.apiDefault)
}

// CreateEmbeddingLayer registers the embedding dependencies layer.
func (c *Catalog) CreateEmbeddingLayer() Handle {
	return c.register(c.embedding)
}

// CreateAgentFlowLayer registers the agent-flow dependencies layer.
func (c *Catalog) CreateAgentFlowLayer() Handle {
	return c.register(c.agentFlow)
}

// CreateOnlineSourceLayer registers the online-serving source layer.
func (c *Catalog) CreateOnlineSourceLayer() Handle {
	return c.register(c.onlineSource)
}

// CreateJobSourceLayer registers the job-processing source layer.
func (c *Catalog) CreateJobSourceLayer() Handle {
	return c.register(c.jobSource)
}

// CreateAuthorizerLayer registers the authorizer source layer.
func (c *Catalog) CreateAuthorizerLayer() Handle {
	return c.register(c.authorizer)
}

// CreateAll registers every recipe once, in declaration order.
func (c *Catalog) CreateAll() []Handle {
	return []Handle{
		c.CreateAPIDefaultLayer(),
		c.CreateEmbeddingLayer(),
		c.CreateAgentFlowLayer(),
		c.CreateOnlineSourceLayer(),
		c.CreateJobSourceLayer(),
		c.CreateAuthorizerLayer(),
	}
}

// Recipes returns copies of the recipes in declaration order without
// registering anything.
func (c *Catalog) Recipes() []Recipe {
	return []Recipe{
		c.apiDefault.Clone(),
		c.embedding.Clone(),
		c.agentFlow.Clone(),
		c.onlineSource.Clone(),
		c.jobSource.Clone(),
		c.authorizer.Clone(),
	}
}
