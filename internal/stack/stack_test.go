package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/intrinsics"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
)

var layerDirs = []string{
	"lambda/layer/api",
	"lambda/embedding",
	"lambda/layer/agent-flow",
	"lambda/online",
	"lambda/job/dep/llm_bot_dep",
	"lambda/authorizer",
}

// sourceTree creates a source root holding every layer directory.
func sourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range layerDirs {
		path := filepath.Join(root, filepath.FromSlash(dir))
		require.NoError(t, os.MkdirAll(path, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "requirements.txt"), []byte(dir+"\n"), 0o644))
	}
	return root
}

func newCatalog(s *Stack, root string) *layer.Catalog {
	return layer.NewCatalog(s, layer.Config{SourceRoot: root, SolutionName: "Intelli-Agent"})
}

func TestStack_RegisterLayer(t *testing.T) {
	s := New("shared")
	layers := newCatalog(s, "/src")

	h := layers.CreateAgentFlowLayer()
	assert.Equal(t, "AgentFlowLayer", h.ID())
	assert.Equal(t, "AgentFlowLayer", h.Recipe().ID)

	lh, ok := h.(*LayerHandle)
	require.True(t, ok)
	assert.Equal(t, intrinsics.Ref{LogicalName: "AgentFlowLayer"}, lh.Ref())
	assert.Len(t, s.Layers(), 1)
}

func TestStack_RegisterLayer_RepeatGetsSuffix(t *testing.T) {
	s := New("shared")
	layers := newCatalog(s, "/src")

	first := layers.CreateOnlineSourceLayer()
	second := layers.CreateOnlineSourceLayer()
	third := layers.CreateOnlineSourceLayer()

	assert.Equal(t, "APILambdaOnlineSourceLayer", first.ID())
	assert.Equal(t, "APILambdaOnlineSourceLayer2", second.ID())
	assert.Equal(t, "APILambdaOnlineSourceLayer3", third.ID())
	assert.NotSame(t, first, second)
}

func TestStack_RegisterLayer_HandleIsolatedFromCaller(t *testing.T) {
	s := New("shared")
	recipe := layer.Recipe{ID: "Custom", Runtimes: []layer.Runtime{layer.RuntimePython312}}

	h := s.RegisterLayer(recipe)
	recipe.Runtimes[0] = "python3.9"

	assert.Equal(t, []string{"python3.12"}, h.Recipe().RuntimeNames())

	got := h.Recipe()
	got.Runtimes[0] = "python3.9"
	assert.Equal(t, []string{"python3.12"}, h.Recipe().RuntimeNames())
}

func TestStack_RegisterLayer_EmptyID(t *testing.T) {
	s := New("shared")
	assert.Equal(t, "Layer", s.RegisterLayer(layer.Recipe{}).ID())
	assert.Equal(t, "Layer2", s.RegisterLayer(layer.Recipe{}).ID())
}

func TestStack_RegisterLayer_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := New("shared", WithLogger(zap.New(core)))

	newCatalog(s, "/src").CreateAuthorizerLayer()

	entries := logs.FilterMessage("registered layer").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "APILambdaAuthorizerLayer", fields["logicalId"])
	assert.Equal(t, "auto-resolve", fields["packaging"])
	assert.Equal(t, "shared", fields["stack"])
}

func TestStack_Synth_Layers(t *testing.T) {
	root := sourceTree(t)
	env := wetwire.Environment{Partition: "aws", Region: "us-east-1", Account: "123456789012"}
	s := New("shared", WithEnvironment(env), WithAssetQualifier("abc123"), WithDescription("shared resources"))
	newCatalog(s, root).CreateAll()

	tmpl, assets, err := s.Synth()
	require.NoError(t, err)

	assert.Equal(t, "shared resources", tmpl.Description)
	assert.Len(t, tmpl.Resources, 6)
	require.Len(t, assets, 6)
	assert.Len(t, tmpl.Outputs, 6)

	agentFlow := tmpl.Resources["AgentFlowLayer"]
	assert.Equal(t, "AWS::Lambda::LayerVersion", agentFlow.Type)
	assert.Equal(t, "Intelli-Agent - Agent Flow layer", agentFlow.Properties["Description"])
	assert.Equal(t, []any{"python3.12"}, agentFlow.Properties["CompatibleRuntimes"])

	content := agentFlow.Properties["Content"].(map[string]any)
	assert.Equal(t, "cdk-abc123-assets-123456789012-us-east-1", content["S3Bucket"])

	var agentAsset wetwire.Asset
	for _, a := range assets {
		if a.LogicalID == "AgentFlowLayer" {
			agentAsset = a
		}
	}
	assert.Equal(t, agentAsset.Hash+".zip", content["S3Key"])
	assert.Equal(t, "explicit", agentAsset.Packaging)
	assert.Equal(t, "public.ecr.aws/sam/build-python3.12", agentAsset.Image)
	assert.Equal(t, filepath.Join(root, "lambda", "layer", "agent-flow"), agentAsset.SourcePath)

	assert.Equal(t, filepath.Join(root, "lambda", "layer", "agent-flow"), agentFlow.Metadata["aws:asset:path"])
	assert.Equal(t, "Content", agentFlow.Metadata["aws:asset:property"])

	output := tmpl.Outputs["AgentFlowLayerArn"]
	assert.Equal(t, map[string]any{"Ref": "AgentFlowLayer"}, output.Value)
}

func TestStack_Synth_UnresolvedEnvironmentUsesSub(t *testing.T) {
	root := sourceTree(t)
	s := New("shared")
	newCatalog(s, root).CreateJobSourceLayer()
	s.AddCatalog(policy.NewCatalog(s.Environment()))

	tmpl, _, err := s.Synth()
	require.NoError(t, err)

	content := tmpl.Resources["APILambdaJobSourceLayer"].Properties["Content"].(map[string]any)
	assert.Equal(t, map[string]any{"Fn::Sub": "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"}, content["S3Bucket"])

	doc := tmpl.Resources["LogStatementPolicy"].Properties["PolicyDocument"].(map[string]any)
	statement := doc["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{map[string]any{"Fn::Sub": "arn:${AWS::Partition}:logs:${AWS::Region}:${AWS::AccountId}:log-group:*:*"}}, statement["Resource"])
}

func TestStack_Synth_OnePolicyPerBundle(t *testing.T) {
	s := New("shared", WithEnvironment(wetwire.Environment{Partition: "aws", Region: "eu-west-1", Account: "111122223333"}))
	ids := s.AddCatalog(policy.NewCatalog(s.Environment()))
	require.Len(t, ids, 8)
	assert.Equal(t, "LogStatementPolicy", ids[0])
	assert.Equal(t, "StsStatementPolicy", ids[5])

	tmpl, assets, err := s.Synth()
	require.NoError(t, err)
	assert.Empty(t, assets)
	assert.Len(t, tmpl.Resources, 8)

	for _, id := range ids {
		res, ok := tmpl.Resources[id]
		require.True(t, ok, id)
		assert.Equal(t, "AWS::IAM::ManagedPolicy", res.Type)
		doc := res.Properties["PolicyDocument"].(map[string]any)
		assert.Equal(t, "2012-10-17", doc["Version"])
		assert.Len(t, doc["Statement"], 1)
	}

	sts := tmpl.Resources["StsStatementPolicy"]
	assert.Equal(t, "stsStatement", sts.Properties["Description"])
	statement := sts.Properties["PolicyDocument"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, "Allow", statement["Effect"])
	assert.Equal(t, []any{"sts:AssumeRole", "iam:CreateServiceLinkedRole", "iam:PassRole"}, statement["Action"])
	assert.Equal(t, []any{"*"}, statement["Resource"])

	logs := tmpl.Resources["LogStatementPolicy"].Properties["PolicyDocument"].(map[string]any)["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"arn:aws:logs:eu-west-1:111122223333:log-group:*:*"}, logs["Resource"])
}

func TestStack_AddBundle_RepeatGetsSuffix(t *testing.T) {
	s := New("shared")
	b := policy.BuildBundle([]string{"sts:AssumeRole"}, []string{"*"})

	assert.Equal(t, "StsStatementPolicy", s.AddBundle("stsStatement", b))
	assert.Equal(t, "StsStatementPolicy2", s.AddBundle("stsStatement", b))
}

func TestStack_Synth_MissingSource(t *testing.T) {
	s := New("shared")
	newCatalog(s, filepath.Join(t.TempDir(), "absent")).CreateEmbeddingLayer()

	_, _, err := s.Synth()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset APILambdaEmbeddingLayer")
}

func TestStack_Synth_RepeatRegistrationsShareHash(t *testing.T) {
	root := sourceTree(t)
	s := New("shared")
	layers := newCatalog(s, root)
	layers.CreateAuthorizerLayer()
	layers.CreateAuthorizerLayer()

	tmpl, assets, err := s.Synth()
	require.NoError(t, err)

	require.Len(t, assets, 2)
	assert.Equal(t, assets[0].Hash, assets[1].Hash)
	assert.NotEqual(t, assets[0].LogicalID, assets[1].LogicalID)
	assert.Contains(t, tmpl.Resources, "APILambdaAuthorizerLayer2")
}

func TestStack_Synth_PackagingChangesHash(t *testing.T) {
	root := sourceTree(t)

	hashFor := func(option string) string {
		s := New("shared")
		layer.NewCatalog(s, layer.Config{SourceRoot: root, PipOption: option}).CreateAPIDefaultLayer()
		_, assets, err := s.Synth()
		require.NoError(t, err)
		return assets[0].Hash
	}

	assert.Equal(t, hashFor(""), hashFor(""))
	assert.NotEqual(t, hashFor(""), hashFor("--index-url https://mirror.example.com/simple"))
}

func TestStack_AssetBucket(t *testing.T) {
	assert.Equal(t, "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}", New("s").AssetBucket())
	assert.Equal(t, "cdk-q1-assets-1-cn-north-1", New("s",
		WithAssetQualifier("q1"),
		WithEnvironment(wetwire.Environment{Region: "cn-north-1", Account: "1"}),
	).AssetBucket())
}
