// Package wetwire_catalog holds the shared contracts of the AWS catalog toolkit.
//
// The toolkit declares two fixed catalogs as Go values:
//
//	policies := policy.NewCatalog(stack.Environment())
//	role.Attach(policies.LogStatement)
//
//	layers := layer.NewCatalog(stack, cfg)
//	online := layers.CreateOnlineSourceLayer()
//
// A provisioning collaborator (a CloudFormation stack or a CDK scope) turns the
// registrations into a template. The types in this package are what those
// collaborators and the wetwire-catalog CLI exchange.
package wetwire_catalog

import (
	"encoding/json"
	"fmt"
)

// Resource represents a CloudFormation resource.
// All resource types (iam.ManagedPolicy, lambda.LayerVersion) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::Lambda::LayerVersion")
	ResourceType() string
}

// Environment identifies where a stack deploys.
//
// Empty fields are not an error: they stand for the value CloudFormation
// supplies at deploy time, rendered as the matching pseudo parameter.
type Environment struct {
	Partition string `json:"partition,omitempty"`
	Region    string `json:"region,omitempty"`
	Account   string `json:"account,omitempty"`
}

// PartitionOrPseudo returns the partition or "${AWS::Partition}".
func (e Environment) PartitionOrPseudo() string {
	return orPseudo(e.Partition, "AWS::Partition")
}

// RegionOrPseudo returns the region or "${AWS::Region}".
func (e Environment) RegionOrPseudo() string {
	return orPseudo(e.Region, "AWS::Region")
}

// AccountOrPseudo returns the account or "${AWS::AccountId}".
func (e Environment) AccountOrPseudo() string {
	return orPseudo(e.Account, "AWS::AccountId")
}

// IsResolved reports whether every identifier is concrete.
func (e Environment) IsResolved() bool {
	return e.Partition != "" && e.Region != "" && e.Account != ""
}

// ARN formats an ARN scoped to this environment's partition, region and account.
//
//	env.ARN("logs", "log-group:*:*") → "arn:aws:logs:us-east-1:123456789012:log-group:*:*"
func (e Environment) ARN(service, resource string) string {
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s",
		e.PartitionOrPseudo(), service, e.RegionOrPseudo(), e.AccountOrPseudo(), resource)
}

func orPseudo(value, pseudo string) string {
	if value != "" {
		return value
	}
	return "${" + pseudo + "}"
}

// String renders the environment as partition/region/account.
func (e Environment) String() string {
	return e.PartitionOrPseudo() + "/" + e.RegionOrPseudo() + "/" + e.AccountOrPseudo()
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["MyLayer", "Arn"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	Metadata   map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
	Export      *struct {
		Name string `json:"Name" yaml:"Name"`
	} `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// Asset describes a layer source directory the deployment engine must package
// and upload before the template can deploy.
type Asset struct {
	// LogicalID is the resource that consumes the asset
	LogicalID string `json:"logicalId"`
	// SourcePath is the directory to package
	SourcePath string `json:"sourcePath"`
	// Hash fingerprints the source tree and packaging recipe
	Hash string `json:"hash"`
	// ObjectKey is the key the packaged zip is expected under
	ObjectKey string `json:"objectKey"`
	// Packaging is "explicit" or "auto-resolve"
	Packaging string `json:"packaging"`
	// Image is the bundling container image (explicit packaging only)
	Image string `json:"image,omitempty"`
	// Command is the bundling command (explicit packaging only)
	Command []string `json:"command,omitempty"`
	// Excludes are glob patterns left out of the bundle
	Excludes []string `json:"excludes,omitempty"`
}

// BuildResult is the JSON output from `wetwire-catalog build`.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Assets    []Asset  `json:"assets,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `wetwire-catalog validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `wetwire-catalog list`.
type ListResult struct {
	Bundles []ListBundle `json:"bundles"`
	Layers  []ListLayer  `json:"layers"`
}

// ListBundle is a single permission bundle in the list output.
type ListBundle struct {
	Name      string   `json:"name"`
	Effect    string   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

// ListLayer is a single layer recipe in the list output.
type ListLayer struct {
	ID          string   `json:"id"`
	SourcePath  string   `json:"sourcePath"`
	Packaging   string   `json:"packaging"`
	Runtimes    []string `json:"runtimes"`
	Description string   `json:"description"`
}
