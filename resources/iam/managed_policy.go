// Package iam contains AWS::IAM resource types.
package iam

// ManagedPolicy represents AWS::IAM::ManagedPolicy.
type ManagedPolicy struct {
	Description       any   `json:"Description,omitempty"`
	Groups            []any `json:"Groups,omitempty"`
	ManagedPolicyName any   `json:"ManagedPolicyName,omitempty"`
	Path              any   `json:"Path,omitempty"`
	PolicyDocument    any   `json:"PolicyDocument,omitempty"`
	Roles             []any `json:"Roles,omitempty"`
	Users             []any `json:"Users,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r ManagedPolicy) ResourceType() string {
	return "AWS::IAM::ManagedPolicy"
}
