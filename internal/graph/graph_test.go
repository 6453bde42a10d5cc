package graph

import (
	"strings"
	"testing"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

func testTemplate() *wetwire.Template {
	return &wetwire.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]wetwire.ResourceDef{
			"AgentFlowLayer": {
				Type: "AWS::Lambda::LayerVersion",
				Properties: map[string]any{
					"Content": map[string]any{
						"S3Bucket": map[string]any{"Fn::Sub": "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"},
					},
				},
			},
			"APILambdaAuthorizerLayer": {
				Type: "AWS::Lambda::LayerVersion",
			},
			"LogStatementPolicy": {
				Type:      "AWS::IAM::ManagedPolicy",
				DependsOn: []string{"AgentFlowLayer"},
				Properties: map[string]any{
					"PolicyDocument": map[string]any{
						"Statement": []any{
							map[string]any{
								"Effect":   "Allow",
								"Action":   []any{"logs:CreateLogGroup", "logs:PutLogEvents"},
								"Resource": []any{map[string]any{"Fn::GetAtt": []any{"APILambdaAuthorizerLayer", "LayerVersionArn"}}},
							},
						},
					},
				},
			},
		},
		Outputs: map[string]wetwire.Output{
			"AgentFlowLayerArn": {Value: map[string]any{"Ref": "AgentFlowLayer"}},
		},
	}
}

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	gen := &Generator{}
	var sb strings.Builder
	if err := gen.Generate(testTemplate(), nil, &sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	for _, name := range []string{"AgentFlowLayer", "APILambdaAuthorizerLayer", "LogStatementPolicy"} {
		if !strings.Contains(output, name) {
			t.Errorf("expected %s node", name)
		}
	}
	if !strings.Contains(output, "AWS::Lambda::LayerVersion") {
		t.Error("expected resource type in node label")
	}
	if !strings.Contains(output, "dashed") {
		t.Error("expected dashed DependsOn edge")
	}
	if strings.Contains(output, "AWS::AccountId") {
		t.Error("pseudo parameters must not become nodes")
	}
}

func TestGenerator_Generate_WithGetAtt(t *testing.T) {
	gen := &Generator{}
	output, err := gen.GenerateString(testTemplate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "blue") {
		t.Error("expected blue color for GetAtt edge")
	}
}

func TestGenerator_Generate_WithAssetsAndServices(t *testing.T) {
	assets := []wetwire.Asset{
		{LogicalID: "AgentFlowLayer", SourcePath: "source/lambda/layer/agent-flow", Packaging: "explicit"},
		{LogicalID: "NotInTemplate", SourcePath: "source/lambda/elsewhere", Packaging: "explicit"},
	}

	gen := &Generator{IncludeAssets: true, IncludeServices: true}
	output, err := gen.GenerateString(testTemplate(), assets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "source/lambda/layer/agent-flow") {
		t.Error("expected asset node")
	}
	if strings.Contains(output, "source/lambda/elsewhere") {
		t.Error("assets of unknown resources must be skipped")
	}
	if !strings.Contains(output, "folder") {
		t.Error("expected folder shape for asset")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected ellipse shape for service")
	}
}

func TestGenerator_Generate_WithOutputs(t *testing.T) {
	gen := &Generator{IncludeOutputs: true}
	output, err := gen.GenerateString(testTemplate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "AgentFlowLayerArn") {
		t.Error("expected output node")
	}
}

func TestGenerator_Generate_ClusterByType(t *testing.T) {
	gen := &Generator{ClusterByType: true}
	output, err := gen.GenerateString(testTemplate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "cluster_Lambda") {
		t.Error("expected Lambda cluster subgraph")
	}
	if strings.Contains(output, "cluster_IAM") {
		t.Error("single-resource services should not be clustered")
	}
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}
	output, err := gen.GenerateString(testTemplate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("expected mermaid format, not DOT")
	}
}

func TestReferences(t *testing.T) {
	refs := References(map[string]any{
		"A": map[string]any{"Ref": "Layer"},
		"B": []any{map[string]any{"Fn::GetAtt": []any{"Role", "Arn"}}},
		"C": map[string]any{"Fn::Sub": "arn:${AWS::Partition}:x:${Bucket}/${Topic.Name}"},
		"D": map[string]any{"Ref": "AWS::Region"},
	})

	expected := map[string]bool{"Layer": false, "Role": true, "Bucket": false, "Topic": true}
	if len(refs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, refs)
	}
	for name, getAtt := range expected {
		if got, ok := refs[name]; !ok || got != getAtt {
			t.Errorf("reference %s: expected %v, got %v (present=%v)", name, getAtt, got, ok)
		}
	}
}

func TestServices(t *testing.T) {
	services := Services(testTemplate().Resources["LogStatementPolicy"].Properties)
	if len(services) != 1 || services[0] != "logs" {
		t.Errorf("expected [logs], got %v", services)
	}

	if got := Services(nil); len(got) != 0 {
		t.Errorf("expected no services, got %v", got)
	}
}
