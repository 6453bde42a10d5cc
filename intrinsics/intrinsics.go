// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds IAM policy-specific types.
//
// Core intrinsic functions:
//
//	Ref{"APILambdaJobSourceLayer"} → {"Ref": "APILambdaJobSourceLayer"}
//	Sub{"arn:${AWS::Partition}:logs:..."} → {"Fn::Sub": "arn:${AWS::Partition}:logs:..."}
package intrinsics

import (
	"strings"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// Re-export core intrinsic types from shared package.
type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub
)

// StringOrSub returns s unchanged, or wrapped in Fn::Sub when it holds an
// ${AWS::...} pseudo-parameter placeholder. Inside the Sub, any other ${ (an
// IAM policy variable such as ${aws:username}) is escaped as ${! so
// CloudFormation passes it through literally.
//
//	StringOrSub("*")                                          → "*"
//	StringOrSub("arn:aws:s3:::b/${aws:username}/*")           → "arn:aws:s3:::b/${aws:username}/*"
//	StringOrSub("arn:${AWS::Partition}:s3:::bucket")          → Sub{String: "arn:${AWS::Partition}:s3:::bucket"}
//	StringOrSub("arn:${AWS::Partition}:s3:::b/${aws:userid}") → Sub{String: "arn:${AWS::Partition}:s3:::b/${!aws:userid}"}
func StringOrSub(s string) any {
	if !strings.Contains(s, "${AWS::") {
		return s
	}

	var b strings.Builder
	rest := s
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i+2])
		rest = rest[i+2:]
		if !strings.HasPrefix(rest, "AWS::") {
			b.WriteByte('!')
		}
	}
	return Sub{String: b.String()}
}
