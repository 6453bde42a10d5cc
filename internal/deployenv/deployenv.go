// Package deployenv resolves the deployment execution context: the partition,
// region and account a stack deploys into.
//
// Precedence, highest first: explicit options, CDK_DEPLOY_ACCOUNT and
// CDK_DEPLOY_REGION, CDK_DEFAULT_ACCOUNT and CDK_DEFAULT_REGION, then an
// optional STS GetCallerIdentity lookup. Identifiers still unknown afterwards
// stay empty and render as CloudFormation pseudo parameters.
package deployenv

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/caarlos0/env/v11"

	wetwire "github.com/lex00/wetwire-aws-catalog"
)

// Variables are the environment variables the CDK toolchain exports.
type Variables struct {
	DeployAccount  string `env:"CDK_DEPLOY_ACCOUNT"`
	DeployRegion   string `env:"CDK_DEPLOY_REGION"`
	DefaultAccount string `env:"CDK_DEFAULT_ACCOUNT"`
	DefaultRegion  string `env:"CDK_DEFAULT_REGION"`
}

// Options are explicit identifiers and lookup settings.
type Options struct {
	Partition string
	Region    string
	Account   string

	// Lookup asks STS for the caller identity when the account is unknown.
	Lookup bool
	// STS overrides the client used for Lookup.
	STS stsiface.STSAPI
}

// Resolve builds the environment from opts and the process environment.
func Resolve(ctx context.Context, opts Options) (wetwire.Environment, error) {
	var vars Variables
	if err := env.Parse(&vars); err != nil {
		return wetwire.Environment{}, fmt.Errorf("reading CDK environment variables: %w", err)
	}
	return ResolveWith(ctx, opts, vars)
}

// ResolveWith is Resolve with the environment variables supplied by the caller.
func ResolveWith(ctx context.Context, opts Options, vars Variables) (wetwire.Environment, error) {
	account, region := vars.DeployAccount, vars.DeployRegion
	if account == "" || region == "" {
		account, region = vars.DefaultAccount, vars.DefaultRegion
	}

	result := wetwire.Environment{
		Partition: opts.Partition,
		Region:    firstNonEmpty(opts.Region, region),
		Account:   firstNonEmpty(opts.Account, account),
	}

	if opts.Lookup && result.Account == "" {
		client := opts.STS
		if client == nil {
			sess, err := session.NewSessionWithOptions(session.Options{
				SharedConfigState: session.SharedConfigEnable,
				Config:            aws.Config{Region: nilIfEmpty(result.Region)},
			})
			if err != nil {
				return wetwire.Environment{}, fmt.Errorf("creating AWS session: %w", err)
			}
			if result.Region == "" {
				result.Region = aws.StringValue(sess.Config.Region)
			}
			client = sts.New(sess)
		}

		identity, err := LookupIdentity(ctx, client)
		if err != nil {
			return wetwire.Environment{}, err
		}
		result.Account = identity.Account
		if result.Partition == "" {
			result.Partition = identity.Partition
		}
	}

	if result.Partition == "" {
		result.Partition = PartitionForRegion(result.Region)
	}

	return result, nil
}

// Identity is the caller identity reported by STS.
type Identity struct {
	Account   string
	Partition string
	ARN       string
}

// LookupIdentity calls STS GetCallerIdentity.
func LookupIdentity(ctx context.Context, client stsiface.STSAPI) (Identity, error) {
	out, err := client.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("looking up caller identity: %w", err)
	}

	identity := Identity{
		Account: aws.StringValue(out.Account),
		ARN:     aws.StringValue(out.Arn),
	}

	parsed, err := arn.Parse(identity.ARN)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing caller ARN %q: %w", identity.ARN, err)
	}
	identity.Partition = parsed.Partition

	return identity, nil
}

// PartitionForRegion derives the partition from a region name. An empty
// region yields an empty partition.
func PartitionForRegion(region string) string {
	switch {
	case region == "":
		return ""
	case strings.HasPrefix(region, "cn-"):
		return "aws-cn"
	case strings.HasPrefix(region, "us-gov-"):
		return "aws-us-gov"
	case strings.HasPrefix(region, "us-iso-"):
		return "aws-iso"
	case strings.HasPrefix(region, "us-isob-"):
		return "aws-iso-b"
	default:
		return "aws"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
