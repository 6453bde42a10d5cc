package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

func templateWith(resources map[string]wetwire.ResourceDef) *wetwire.Template {
	return &wetwire.Template{AWSTemplateFormatVersion: "2010-09-09", Resources: resources}
}

func TestValidateTemplate_Valid(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"AgentFlowLayer": {
			Type: "AWS::Lambda::LayerVersion",
			Properties: map[string]any{
				"CompatibleRuntimes": []any{"python3.12"},
				"Content": map[string]any{
					"S3Bucket": map[string]any{"Fn::Sub": "cdk-hnb659fds-assets-${AWS::AccountId}-${AWS::Region}"},
					"S3Key":    "abc.zip",
				},
				"Description": "Intelli Agent - Agent Flow layer",
			},
		},
		"LogStatementPolicy": {
			Type: "AWS::IAM::ManagedPolicy",
			Properties: map[string]any{
				"PolicyDocument": map[string]any{"Version": "2012-10-17"},
			},
		},
	})

	result, err := ValidateTemplate(tmpl, Options{Strict: true})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateTemplate_MissingRequired(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"LogStatementPolicy": {Type: "AWS::IAM::ManagedPolicy"},
	})

	result, err := ValidateTemplate(tmpl, Options{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "LogStatementPolicy.PolicyDocument: missing required property: PolicyDocument", result.Errors[0].String())
}

func TestValidateTemplate_Limits(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"AgentFlowLayer": {
			Type: "AWS::Lambda::LayerVersion",
			Properties: map[string]any{
				"Content":                 map[string]any{"S3Key": "abc.zip"},
				"Description":             strings.Repeat("x", 257),
				"CompatibleArchitectures": []any{"x86_64", "arm64", "other"},
			},
		},
	})

	result, err := ValidateTemplate(tmpl, Options{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "CompatibleArchitectures", result.Errors[0].Property)
	assert.Contains(t, result.Errors[0].Message, "3 items exceeds maximum 2")
	assert.Equal(t, "Description", result.Errors[1].Property)
	assert.Contains(t, result.Errors[1].Message, "length 257 exceeds maximum 256")
}

func TestValidateTemplate_TypeMismatch(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"AgentFlowLayer": {
			Type: "AWS::Lambda::LayerVersion",
			Properties: map[string]any{
				"Content":            "not-a-map",
				"CompatibleRuntimes": map[string]any{"Ref": "Runtimes"},
			},
		},
	})

	result, err := ValidateTemplate(tmpl, Options{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Content", result.Errors[0].Property)
	assert.Equal(t, "expected type Map", result.Errors[0].Message)
}

func TestValidateTemplate_UnknownType(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"Role":   {Type: "AWS::IAM::Role"},
		"Broken": {Type: "NotAType"},
	})

	result, err := ValidateTemplate(tmpl, Options{})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Broken", result.Errors[0].Resource)
	assert.Len(t, result.Warnings, 2)
}

func TestValidateTemplate_StrictUnknownProperty(t *testing.T) {
	tmpl := templateWith(map[string]wetwire.ResourceDef{
		"LogStatementPolicy": {
			Type: "AWS::IAM::ManagedPolicy",
			Properties: map[string]any{
				"PolicyDocument": map[string]any{},
				"Tags":           []any{},
			},
		},
	})

	loose, err := ValidateTemplate(tmpl, Options{})
	require.NoError(t, err)
	assert.Empty(t, loose.Warnings)

	strict, err := ValidateTemplate(tmpl, Options{Strict: true})
	require.NoError(t, err)
	require.Len(t, strict.Warnings, 1)
	assert.Equal(t, "unknown property: Tags", strict.Warnings[0].Message)
	assert.True(t, strict.Valid)
}

func TestIsValidResourceType(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AWS::Lambda::LayerVersion", true},
		{"Custom::LayerCleanup", true},
		{"Alexa::ASK::Skill", true},
		{"AWS::Lambda", false},
		{"Other::Lambda::LayerVersion", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidResourceType(tt.in))
		})
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("AWS::Lambda::LayerVersion")
	require.True(t, ok)
	assert.Equal(t, []string{"Content"}, s.Required)

	_, ok = Lookup("AWS::S3::Bucket")
	assert.False(t, ok)
}
