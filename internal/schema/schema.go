// Package schema provides offline CloudFormation schema validation.
// It checks synthesized resources against the property schemas of the
// resource types the catalogs emit, without calling cfn-lint or AWS.
package schema

import (
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties missing from the schema as warnings
	Strict bool
}

// Error is a single schema finding.
type Error struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Error
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Type       string
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	// MaxLength bounds String values; 0 means unbounded
	MaxLength int
	// MaxItems bounds List values; 0 means unbounded
	MaxItems int
}

var resourceSchemas = map[string]ResourceSchema{
	"AWS::Lambda::LayerVersion": {
		Type:     "AWS::Lambda::LayerVersion",
		Required: []string{"Content"},
		Properties: map[string]PropertySchema{
			"CompatibleArchitectures": {Type: "List", MaxItems: 2},
			"CompatibleRuntimes":      {Type: "List", MaxItems: 15},
			"Content":                 {Type: "Map"},
			"Description":             {Type: "String", MaxLength: 256},
			"LayerName":               {Type: "String", MaxLength: 140},
			"LicenseInfo":             {Type: "String", MaxLength: 512},
		},
	},
	"AWS::IAM::ManagedPolicy": {
		Type:     "AWS::IAM::ManagedPolicy",
		Required: []string{"PolicyDocument"},
		Properties: map[string]PropertySchema{
			"Description":       {Type: "String", MaxLength: 1000},
			"Groups":            {Type: "List"},
			"ManagedPolicyName": {Type: "String", MaxLength: 128},
			"Path":              {Type: "String", MaxLength: 512},
			"PolicyDocument":    {Type: "Json"},
			"Roles":             {Type: "List"},
			"Users":             {Type: "List"},
		},
	},
}

// Lookup returns the schema for a resource type.
func Lookup(resourceType string) (ResourceSchema, bool) {
	s, ok := resourceSchemas[resourceType]
	return s, ok
}

// ValidateTemplate validates a CloudFormation template against known schemas.
// Findings are ordered by resource, then property.
func ValidateTemplate(template *wetwire.Template, opts Options) (*Result, error) {
	result := &Result{Valid: true}

	names := make([]string, 0, len(template.Resources))
	for name := range template.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errors, warnings := validateResource(name, template.Resources[name], opts)
		result.Errors = append(result.Errors, errors...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result, nil
}

// validateResource validates a single resource.
func validateResource(name string, resource wetwire.ResourceDef, opts Options) ([]Error, []Error) {
	var errors, warnings []Error

	if !isValidResourceType(resource.Type) {
		errors = append(errors, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errors, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errors = append(errors, Error{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for propName := range resource.Properties {
		props = append(props, propName)
	}
	sort.Strings(props)

	for _, propName := range props {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}

		errors = append(errors, validateProperty(name, propName, resource.Properties[propName], propSchema)...)
	}

	return errors, warnings
}

// isValidResourceType checks if a resource type has valid format.
func isValidResourceType(resourceType string) bool {
	// AWS::Service::Resource or Custom::*
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS" || parts[0] == "Alexa"
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	var errors []Error

	if isIntrinsic(value) {
		return nil
	}

	if !isValidType(value, schema.Type) {
		errors = append(errors, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
		return errors
	}

	if s, ok := value.(string); ok {
		if schema.MaxLength > 0 && len(s) > schema.MaxLength {
			errors = append(errors, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("length %d exceeds maximum %d", len(s), schema.MaxLength),
			})
		}
		if len(schema.AllowedValues) > 0 && !contains(schema.AllowedValues, s) {
			errors = append(errors, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", s, schema.AllowedValues),
			})
		}
	}

	if items, ok := value.([]any); ok && schema.MaxItems > 0 && len(items) > schema.MaxItems {
		errors = append(errors, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("%d items exceeds maximum %d", len(items), schema.MaxItems),
		})
	}

	return errors
}

// isIntrinsic reports whether value is a Ref or Fn:: call, which is resolved at deploy time.
func isIntrinsic(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		if strings.HasPrefix(key, "Fn::") || key == "Ref" {
			return true
		}
	}
	return false
}

// isValidType checks if a value matches the expected type.
func isValidType(value any, expectedType string) bool {
	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch value.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
