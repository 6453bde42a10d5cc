// Package intrinsics provides CloudFormation intrinsic functions.
// This file contains IAM policy document types and helpers.
package intrinsics

// Any creates a []any slice from the given items.
// Use for fields typed as []any that accept mixed types or intrinsics.
func Any(items ...any) []any {
	return items
}

// PolicyDocumentVersion is the only IAM policy language version in use.
const PolicyDocumentVersion = "2012-10-17"

// PolicyDocument represents an IAM policy document.
//
// Example:
//
//	var LogsPolicy = PolicyDocument{
//	    Version:   PolicyDocumentVersion,
//	    Statement: []any{LogStatement},
//	}
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: PolicyDocumentVersion, Statement: statements}
}

// PolicyStatement represents an IAM policy statement.
//
// Example:
//
//	var LogStatement = PolicyStatement{
//	    Effect:   "Allow",
//	    Action:   []any{"logs:CreateLogGroup"},
//	    Resource: []any{"*"},
//	}
type PolicyStatement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal any            `json:"Principal,omitempty"`
	Action    any            `json:"Action,omitempty"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}
