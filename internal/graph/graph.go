// Package graph generates DOT and Mermaid graphs of a synthesized template.
package graph

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/emicklei/dot"
	"github.com/samber/lo"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator draws resources, their references and, optionally, the layer
// assets and the services granted by managed policies.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service type.
	ClusterByType bool

	// IncludeAssets adds a node per layer source directory.
	IncludeAssets bool

	// IncludeServices adds a node per service a managed policy grants actions on.
	IncludeServices bool

	// IncludeOutputs adds template outputs and the resources they reference.
	IncludeOutputs bool
}

// Generate creates the graph and writes it to w.
func (g *Generator) Generate(tmpl *wetwire.Template, assets []wetwire.Asset, w io.Writer) error {
	graph := g.buildGraph(tmpl, assets)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(tmpl *wetwire.Template, assets []wetwire.Asset) (string, error) {
	var sb strings.Builder
	if err := g.Generate(tmpl, assets, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(tmpl *wetwire.Template, assets []wetwire.Asset) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	names := lo.Keys(tmpl.Resources)
	sort.Strings(names)

	if g.ClusterByType {
		g.addClusteredNodes(graph, tmpl, names)
	} else {
		for _, name := range names {
			resourceNode(graph, name, tmpl.Resources[name].Type)
		}
	}

	for _, name := range names {
		res := tmpl.Resources[name]
		for _, dep := range res.DependsOn {
			if _, ok := tmpl.Resources[dep]; ok {
				graph.Edge(graph.Node(name), graph.Node(dep)).Attr("style", "dashed")
			}
		}

		refs := References(res.Properties)
		for _, target := range sortedKeys(refs) {
			if _, ok := tmpl.Resources[target]; !ok || target == name {
				continue
			}
			e := graph.Edge(graph.Node(name), graph.Node(target))
			if refs[target] {
				e.Attr("color", "blue")
			}
		}

		if g.IncludeServices && res.Type == "AWS::IAM::ManagedPolicy" {
			for _, service := range Services(res.Properties) {
				n := graph.Node("service:" + service)
				n.Label(service)
				n.Attr("shape", "ellipse")
				graph.Edge(graph.Node(name), n)
			}
		}
	}

	if g.IncludeAssets {
		for _, a := range assets {
			if _, ok := tmpl.Resources[a.LogicalID]; !ok {
				continue
			}
			n := graph.Node("asset:" + a.SourcePath)
			n.Label(a.SourcePath + "\\n(" + a.Packaging + ")")
			n.Attr("shape", "folder")
			graph.Edge(graph.Node(a.LogicalID), n).Attr("style", "dotted")
		}
	}

	if g.IncludeOutputs {
		outputs := lo.Keys(tmpl.Outputs)
		sort.Strings(outputs)
		for _, name := range outputs {
			n := graph.Node("output:" + name)
			n.Label(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			for _, target := range sortedKeys(References(tmpl.Outputs[name].Value)) {
				if _, ok := tmpl.Resources[target]; ok {
					graph.Edge(n, graph.Node(target))
				}
			}
		}
	}

	return graph
}

func resourceNode(graph *dot.Graph, name, cfType string) {
	graph.Node(name).Label(name + "\\n[" + cfType + "]")
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, tmpl *wetwire.Template, names []string) {
	byService := lo.GroupBy(names, func(name string) string {
		return serviceOf(tmpl.Resources[name].Type)
	})

	services := lo.Keys(byService)
	sort.Strings(services)
	for _, service := range services {
		members := byService[service]
		if len(members) < 2 {
			resourceNode(graph, members[0], tmpl.Resources[members[0]].Type)
			continue
		}

		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, name := range members {
			resourceNode(cluster, name, tmpl.Resources[name].Type)
		}
	}
}

// serviceOf extracts the service from a CloudFormation type.
// e.g., "AWS::Lambda::LayerVersion" -> "Lambda"
func serviceOf(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

var subRef = regexp.MustCompile(`\$\{([A-Za-z0-9]+)(\.[A-Za-z0-9.]+)?\}`)

// References collects the logical names referenced through Ref, Fn::GetAtt and
// Fn::Sub anywhere in v. The value reports whether an attribute was read.
// Pseudo parameters (AWS::...) are not included.
func References(v any) map[string]bool {
	refs := make(map[string]bool)
	collectRefs(v, refs)
	return refs
}

func collectRefs(v any, refs map[string]bool) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if name, ok := val["Ref"].(string); ok {
				if _, seen := refs[name]; !seen && !strings.HasPrefix(name, "AWS::") {
					refs[name] = false
				}
				return
			}
			if args, ok := val["Fn::GetAtt"].([]any); ok && len(args) > 0 {
				if name, ok := args[0].(string); ok {
					refs[name] = true
				}
				return
			}
			if s, ok := val["Fn::Sub"].(string); ok {
				for _, m := range subRef.FindAllStringSubmatch(s, -1) {
					refs[m[1]] = refs[m[1]] || m[2] != ""
				}
				return
			}
		}
		for _, item := range val {
			collectRefs(item, refs)
		}
	case []any:
		for _, item := range val {
			collectRefs(item, refs)
		}
	}
}

// Services returns the distinct service prefixes of the actions in a managed
// policy's properties, sorted.
func Services(props map[string]any) []string {
	doc, _ := props["PolicyDocument"].(map[string]any)
	statements, _ := doc["Statement"].([]any)

	var services []string
	for _, s := range statements {
		statement, _ := s.(map[string]any)
		switch actions := statement["Action"].(type) {
		case []any:
			for _, a := range actions {
				if action, ok := a.(string); ok {
					services = append(services, prefix(action))
				}
			}
		case string:
			services = append(services, prefix(actions))
		}
	}

	services = lo.Uniq(services)
	sort.Strings(services)
	return services
}

func prefix(action string) string {
	service, _, _ := strings.Cut(action, ":")
	return service
}

func sortedKeys(m map[string]bool) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
