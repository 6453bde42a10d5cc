// Command catalog-cdk is the AWS CDK app for the shared policies and layers.
//
//	cdk synth --app "go run ./cmd/catalog-cdk"
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-aws-catalog/internal/buildconfig"
	"github.com/lex00/wetwire-aws-catalog/internal/cdkstack"
	"github.com/lex00/wetwire-aws-catalog/internal/constants"
	"github.com/lex00/wetwire-aws-catalog/internal/deployenv"
	"github.com/lex00/wetwire-aws-catalog/internal/logging"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
)

// SharedStackProps configures the shared stack.
type SharedStackProps struct {
	awscdk.StackProps
	Config buildconfig.Config
}

// SharedStack adds every layer and a Lambda execution role carrying every
// permission bundle.
func SharedStack(scope constructs.Construct, id string, props *SharedStackProps) awscdk.Stack {
	stack := awscdk.NewStack(scope, jsii.String(id), &props.StackProps)

	p := cdkstack.New(stack)
	layers := layer.NewCatalog(p, layer.Config{
		SourceRoot:   props.Config.SourceRoot,
		PipOption:    props.Config.LayerPipOption,
		SolutionName: constants.SolutionName,
	})
	for _, h := range layers.CreateAll() {
		awscdk.NewCfnOutput(stack, jsii.String(h.ID()+"Arn"), &awscdk.CfnOutputProps{
			Value:       h.(*cdkstack.Handle).LayerVersion().LayerVersionArn(),
			Description: jsii.String(h.Recipe().Description),
		})
	}

	role := awsiam.NewRole(stack, jsii.String("LambdaExecutionRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
	})
	cdkstack.Attach(role, policy.NewCatalog(p.Environment()))

	awscdk.NewCfnOutput(stack, jsii.String("LambdaExecutionRoleArn"), &awscdk.CfnOutputProps{
		Value: role.RoleArn(),
	})

	return stack
}

func main() {
	logger, err := logging.New(os.Getenv("WETWIRE_VERBOSE") != "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zap.ReplaceGlobals(logger)()

	cfg, err := buildconfig.Load(os.Getenv("WETWIRE_CONFIG"))
	if err != nil {
		logger.Fatal("loading build config", zap.Error(err))
	}

	app := awscdk.NewApp(nil)

	SharedStack(app, cfg.StackName, &SharedStackProps{
		StackProps: awscdk.StackProps{
			Env:         env(),
			Description: jsii.String(constants.SolutionName + " shared IAM policies and Lambda layers"),
		},
		Config: cfg,
	})

	app.Synth(nil)
}

// env determines the AWS environment (account+region) in which the stack is
// deployed. Unset values leave the stack environment-agnostic.
func env() *awscdk.Environment {
	resolved, err := deployenv.Resolve(context.Background(), deployenv.Options{})
	if err != nil {
		zap.L().Warn("resolving deployment environment", zap.Error(err))
		return nil
	}

	e := &awscdk.Environment{}
	if resolved.Account != "" {
		e.Account = jsii.String(resolved.Account)
	}
	if resolved.Region != "" {
		e.Region = jsii.String(resolved.Region)
	}
	return e
}
