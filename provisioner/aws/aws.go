// Package aws adapts EC2-compatible endpoints to the provider capability.
// Credentials come from the standard AWS configuration chain.
package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/tipee-sa/sherpa/cluster"
	"github.com/tipee-sa/sherpa/provisioner/internal"
)

type Config struct {
	Region   string
	SubnetID string
}

type Provider struct {
	client *ec2.Client
	config Config
	log    *slog.Logger
}

var _ cluster.Provider = (*Provider)(nil)

func New(ctx context.Context, config Config, logger *slog.Logger) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Provider{
		client: ec2.NewFromConfig(cfg),
		config: config,
		log:    logger.With("provider", "aws"),
	}, nil
}

func (p *Provider) CreateInstance(ctx context.Context, spec cluster.InstanceSpec) (string, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      awssdk.String(spec.Image),
		InstanceType: ec2types.InstanceType(spec.Flavor),
		MinCount:     awssdk.Int32(1),
		MaxCount:     awssdk.Int32(1),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{{
				Key:   awssdk.String("Name"),
				Value: awssdk.String(spec.Name),
			}},
		}},
	}
	if spec.KeyPair != "" {
		input.KeyName = awssdk.String(spec.KeyPair)
	}
	if len(spec.SecurityGroups) > 0 {
		input.SecurityGroups = spec.SecurityGroups
	}
	if p.config.SubnetID != "" {
		input.SubnetId = awssdk.String(p.config.SubnetID)
		// In a subnet the groups must be referenced by id, not by name.
		input.SecurityGroups = nil
		input.SecurityGroupIds = spec.SecurityGroups
	}

	output, err := internal.RetryResultWithContext(ctx, 3, func() (*ec2.RunInstancesOutput, error) {
		return p.client.RunInstances(ctx, input)
	})
	if err != nil {
		return "", fmt.Errorf("failed to run instance '%s': %w", spec.Name, err)
	}
	if len(output.Instances) == 0 {
		return "", fmt.Errorf("no instance returned for '%s'", spec.Name)
	}

	id := awssdk.ToString(output.Instances[0].InstanceId)
	p.log.Debug("Created instance", "name", spec.Name, "id", id)
	return id, nil
}

func (p *Provider) TerminateInstance(ctx context.Context, id string) error {
	_, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
		}
		return fmt.Errorf("failed to terminate instance '%s': %w", id, err)
	}
	return nil
}

func (p *Provider) InstanceState(ctx context.Context, id string) (cluster.InstanceState, error) {
	instance, err := p.describe(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return cluster.InstanceStateTerminated, nil
		}
		return "", err
	}

	switch instance.State.Name {
	case ec2types.InstanceStateNameRunning:
		return cluster.InstanceStateRunning, nil
	case ec2types.InstanceStateNamePending:
		return cluster.InstanceStatePending, nil
	case ec2types.InstanceStateNameShuttingDown, ec2types.InstanceStateNameTerminated, ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameStopped:
		return cluster.InstanceStateTerminated, nil
	default:
		return cluster.InstanceStateError, nil
	}
}

func (p *Provider) InstanceAddresses(ctx context.Context, id string) (cluster.Addresses, error) {
	instance, err := p.describe(ctx, id)
	if err != nil {
		return cluster.Addresses{}, err
	}
	return cluster.Addresses{
		PublicIP:  awssdk.ToString(instance.PublicIpAddress),
		PrivateIP: awssdk.ToString(instance.PrivateIpAddress),
	}, nil
}

func (p *Provider) describe(ctx context.Context, id string) (*ec2types.Instance, error) {
	output, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance '%s': %w", id, err)
	}
	for _, reservation := range output.Reservations {
		for _, instance := range reservation.Instances {
			if awssdk.ToString(instance.InstanceId) == id {
				return &instance, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: '%s'", cluster.ErrInstanceNotFound, id)
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "InvalidInstanceID.NotFound" || code == "InvalidInstanceID.Malformed"
	}
	return errors.Is(err, cluster.ErrInstanceNotFound)
}
