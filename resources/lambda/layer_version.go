// Package lambda contains AWS::Lambda resource types.
package lambda

// LayerVersion represents AWS::Lambda::LayerVersion.
type LayerVersion struct {
	CompatibleArchitectures []any                 `json:"CompatibleArchitectures,omitempty"`
	CompatibleRuntimes      []any                 `json:"CompatibleRuntimes,omitempty"`
	Content                 *LayerVersion_Content `json:"Content,omitempty"`
	Description             any                   `json:"Description,omitempty"`
	LayerName               any                   `json:"LayerName,omitempty"`
	LicenseInfo             any                   `json:"LicenseInfo,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r LayerVersion) ResourceType() string {
	return "AWS::Lambda::LayerVersion"
}

// LayerVersion_Content represents AWS::Lambda::LayerVersion.Content.
type LayerVersion_Content struct {
	S3Bucket        any `json:"S3Bucket,omitempty"`
	S3Key           any `json:"S3Key,omitempty"`
	S3ObjectVersion any `json:"S3ObjectVersion,omitempty"`
}
