package policy

import (
	wetwire "github.com/lex00/wetwire-aws-catalog"
)

// Catalog is the fixed set of permission bundles, one per category of
// downstream resource.
type Catalog struct {
	// LogStatement covers log-group and log-stream creation and writes.
	LogStatement Bundle
	// S3Statement covers object storage reads and writes.
	S3Statement Bundle
	// GlueStatement covers starting and polling ETL job runs.
	GlueStatement Bundle
	// EndpointStatement covers the SageMaker endpoint lifecycle and invocation.
	EndpointStatement Bundle
	// DynamoDBStatement covers table reads and writes.
	DynamoDBStatement Bundle
	// STSStatement covers role assumption and role passing.
	STSStatement Bundle
	// ECRStatement covers container registry pulls and pushes.
	ECRStatement Bundle
	// LLMStatement covers SNS notification and CloudWatch metric publishing.
	LLMStatement Bundle
}

// NamedBundle pairs a bundle with the name it is exposed under.
type NamedBundle struct {
	Name   string
	Bundle Bundle
}

// NewCatalog builds the eight bundles. Partition, region and account come
// from env; identifiers left empty there render as CloudFormation pseudo
// parameters.
func NewCatalog(env wetwire.Environment) *Catalog {
	return &Catalog{
		LogStatement: BuildBundle(
			[]string{
				"logs:CreateLogGroup",
				"logs:CreateLogStream",
				"logs:PutLogEvents",
			},
			[]string{env.ARN("logs", "log-group:*:*")},
		),
		S3Statement: BuildBundle(
			[]string{
				"s3:Get*",
				"s3:List*",
				"s3:PutObject",
				"s3:GetObject",
			},
			[]string{"*"},
		),
		GlueStatement: BuildBundle(
			[]string{
				"glue:StartJobRun",
				"glue:GetJobRun*",
			},
			[]string{"*"},
		),
		EndpointStatement: BuildBundle(
			[]string{
				"sagemaker:DeleteModel",
				"sagemaker:DeleteEndpoint",
				"sagemaker:DescribeEndpoint",
				"sagemaker:DeleteEndpointConfig",
				"sagemaker:DescribeEndpointConfig",
				"sagemaker:InvokeEndpoint",
				"sagemaker:CreateModel",
				"sagemaker:CreateEndpoint",
				"sagemaker:CreateEndpointConfig",
				"sagemaker:InvokeEndpointAsync",
				"sagemaker:UpdateEndpointWeightsAndCapacities",
			},
			[]string{env.ARN("sagemaker", "endpoint/*")},
		),
		DynamoDBStatement: BuildBundle(
			[]string{
				"dynamodb:Query",
				"dynamodb:GetItem",
				"dynamodb:PutItem",
				"dynamodb:UpdateItem",
				"dynamodb:Describe*",
				"dynamodb:List*",
				"dynamodb:Scan",
			},
			[]string{env.ARN("dynamodb", "table/*")},
		),
		STSStatement: BuildBundle(
			[]string{
				"sts:AssumeRole",
				"iam:CreateServiceLinkedRole",
				"iam:PassRole",
			},
			[]string{"*"},
		),
		ECRStatement: BuildBundle(
			[]string{
				"ecr:GetAuthorizationToken",
				"ecr:BatchCheckLayerAvailability",
				"ecr:GetDownloadUrlForLayer",
				"ecr:GetRepositoryPolicy",
				"ecr:DescribeRepositories",
				"ecr:ListImages",
				"ecr:DescribeImages",
				"ecr:BatchGetImage",
				"ecr:InitiateLayerUpload",
				"ecr:UploadLayerPart",
				"ecr:CompleteLayerUpload",
				"ecr:PutImage",
			},
			[]string{"*"},
		),
		LLMStatement: BuildBundle(
			[]string{
				"sns:Publish",
				"sns:ListSubscriptionsByTopic",
				"sns:ListTopics",
				"cloudwatch:PutMetricAlarm",
				"cloudwatch:PutMetricData",
				"cloudwatch:DeleteAlarms",
				"cloudwatch:DescribeAlarms",
			},
			[]string{"*"},
		),
	}
}

// Named returns the bundles in declaration order under their exposed names.
func (c *Catalog) Named() []NamedBundle {
	return []NamedBundle{
		{Name: "logStatement", Bundle: c.LogStatement},
		{Name: "s3Statement", Bundle: c.S3Statement},
		{Name: "glueStatement", Bundle: c.GlueStatement},
		{Name: "endpointStatement", Bundle: c.EndpointStatement},
		{Name: "dynamodbStatement", Bundle: c.DynamoDBStatement},
		{Name: "stsStatement", Bundle: c.STSStatement},
		{Name: "ecrStatement", Bundle: c.ECRStatement},
		{Name: "llmStatement", Bundle: c.LLMStatement},
	}
}
