package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/intrinsics"
	"github.com/lex00/wetwire-aws-catalog/resources/iam"
	"github.com/lex00/wetwire-aws-catalog/resources/lambda"
)

func TestResource_LayerVersion(t *testing.T) {
	layer := lambda.LayerVersion{
		CompatibleRuntimes: []any{"python3.12"},
		Description:        "Intelli agent - Authorizer layer",
		Content: &lambda.LayerVersion_Content{
			S3Bucket: intrinsics.Sub{String: "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"},
			S3Key:    "abc.zip",
		},
	}

	props, err := Resource(layer)
	require.NoError(t, err)

	assert.Equal(t, []any{"python3.12"}, props["CompatibleRuntimes"])
	assert.Equal(t, "Intelli agent - Authorizer layer", props["Description"])
	assert.NotContains(t, props, "LayerName")
	assert.NotContains(t, props, "CompatibleArchitectures")

	content := props["Content"].(map[string]any)
	assert.Equal(t, "abc.zip", content["S3Key"])
	assert.Equal(t, map[string]any{"Fn::Sub": "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"}, content["S3Bucket"])
	assert.NotContains(t, content, "S3ObjectVersion")
}

func TestResource_ManagedPolicyDocument(t *testing.T) {
	policy := iam.ManagedPolicy{
		Description: "stsStatement",
		PolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Effect:   "Allow",
			Action:   []any{"sts:AssumeRole"},
			Resource: []any{"*"},
		}),
	}

	props, err := Resource(&policy)
	require.NoError(t, err)

	doc := props["PolicyDocument"].(map[string]any)
	assert.Equal(t, "2012-10-17", doc["Version"])

	statements := doc["Statement"].([]any)
	require.Len(t, statements, 1)
	statement := statements[0].(map[string]any)
	assert.Equal(t, "Allow", statement["Effect"])
	assert.Equal(t, []any{"sts:AssumeRole"}, statement["Action"])
	assert.NotContains(t, statement, "Sid")
	assert.NotContains(t, statement, "Condition")
}

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(lambda.LayerVersion{})
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a resource")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestResource_MapAndNestedPointer(t *testing.T) {
	type content struct {
		Key string `json:"Key"`
	}
	type holder struct {
		Tags    map[string]string `json:"Tags,omitempty"`
		Content *content          `json:"Content,omitempty"`
		Skipped string            `json:"-"`
		hidden  string
	}

	props, err := Resource(holder{
		Tags:    map[string]string{"solution": "Intelli-Agent"},
		Content: &content{Key: "k"},
		Skipped: "x",
		hidden:  "y",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"solution": "Intelli-Agent"}, props["Tags"])
	assert.Equal(t, map[string]any{"Key": "k"}, props["Content"])
	assert.NotContains(t, props, "Skipped")
	assert.NotContains(t, props, "hidden")
}

type runtime string

func TestValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"string", "plain", "plain"},
		{"ref", intrinsics.Ref{LogicalName: "AgentFlowLayer"}, map[string]any{"Ref": "AgentFlowLayer"}},
		{"getatt", wetwire.AttrRef{Resource: "AgentFlowLayer", Attribute: "LayerVersionArn"}, map[string]any{"Fn::GetAtt": []any{"AgentFlowLayer", "LayerVersionArn"}}},
		{"nil", nil, nil},
		{"named string", runtime("python3.12"), "python3.12"},
		{"bool", true, true},
		{"nil pointer", (*lambda.LayerVersion_Content)(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Value(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
