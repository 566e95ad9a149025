package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/99designs/keyring"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const (
	KeyringServiceName = "clip-recorder-app"
	AccessKeyItem      = "aws-access-key"
	SecretKeyItem      = "aws-secret-key"
	RegionItem         = "aws-region"

	defaultRegion = "us-east-1"
)

// CredentialProvider defines the interface for managing AWS credentials
type CredentialProvider interface {
	GetCredentials(ctx context.Context) (aws.Credentials, error)
	StoreCredentials(accessKey, secretKey, region string) error
	ValidateCredentials(ctx context.Context) error
	ClearCredentials() error
	GetRegion() (string, error)
	SetRegion(region string) error
}

// KeyringOptions selects where credentials are kept
type KeyringOptions struct {
	ServiceName string
	// FileDir enables the encrypted file backend when no OS keychain is available
	FileDir string
	// FilePassword unlocks the file backend
	FilePassword string
}

// SecureCredentialProvider implements CredentialProvider using OS keychain
type SecureCredentialProvider struct {
	keyring keyring.Keyring
}

// NewSecureCredentialProvider creates a new SecureCredentialProvider
func NewSecureCredentialProvider(opts KeyringOptions) (*SecureCredentialProvider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = KeyringServiceName
	}

	backends := []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
	}
	if opts.FileDir != "" {
		backends = append(backends, keyring.FileBackend)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:     opts.ServiceName,
		AllowedBackends: backends,
		FileDir:         opts.FileDir,
		FilePasswordFunc: func(string) (string, error) {
			if opts.FilePassword == "" {
				return "", errors.New("no password configured for the credential file")
			}
			return opts.FilePassword, nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &SecureCredentialProvider{
		keyring: ring,
	}, nil
}

// StoreCredentials stores AWS credentials securely in the OS keychain
func (p *SecureCredentialProvider) StoreCredentials(accessKey, secretKey, region string) error {
	if accessKey == "" || secretKey == "" {
		return errors.New("access key and secret key cannot be empty")
	}

	if err := p.keyring.Set(keyring.Item{
		Key:  AccessKeyItem,
		Data: []byte(accessKey),
	}); err != nil {
		return fmt.Errorf("failed to store access key: %w", err)
	}

	if err := p.keyring.Set(keyring.Item{
		Key:  SecretKeyItem,
		Data: []byte(secretKey),
	}); err != nil {
		return fmt.Errorf("failed to store secret key: %w", err)
	}

	if region != "" {
		if err := p.SetRegion(region); err != nil {
			return fmt.Errorf("failed to store region: %w", err)
		}
	}

	return nil
}

// HasStoredCredentials reports whether keys were saved through the settings dialog
func (p *SecureCredentialProvider) HasStoredCredentials() bool {
	_, err := p.keyring.Get(AccessKeyItem)
	return err == nil
}

// GetCredentials retrieves AWS credentials from the keychain, falling back to the default AWS chain
func (p *SecureCredentialProvider) GetCredentials(ctx context.Context) (aws.Credentials, error) {
	accessKeyItem, err := p.keyring.Get(AccessKeyItem)
	if err != nil {
		return p.getCredentialsFromChain(ctx)
	}

	secretKeyItem, err := p.keyring.Get(SecretKeyItem)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to retrieve secret key from keychain: %w", err)
	}

	return aws.Credentials{
		AccessKeyID:     string(accessKeyItem.Data),
		SecretAccessKey: string(secretKeyItem.Data),
		Source:          "clip-recorder-app-keychain",
	}, nil
}

// getCredentialsFromChain attempts to get credentials using AWS credential chain
func (p *SecureCredentialProvider) getCredentialsFromChain(ctx context.Context) (aws.Credentials, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Credentials == nil {
		return aws.Credentials{}, errors.New("no AWS credentials configured")
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to retrieve credentials from AWS credential chain: %w", err)
	}

	return creds, nil
}

// ValidateCredentials validates the stored credentials by making a test AWS API call
func (p *SecureCredentialProvider) ValidateCredentials(ctx context.Context) error {
	creds, err := p.GetCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}

	region, err := p.GetRegion()
	if err != nil {
		region = defaultRegion
	}

	cfg := aws.Config{
		Credentials: credentials.StaticCredentialsProvider{
			Value: creds,
		},
		Region: region,
	}

	stsClient := sts.NewFromConfig(cfg)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("credential validation failed: %w", err)
	}

	return nil
}

// ClearCredentials removes all stored credentials from the keychain
func (p *SecureCredentialProvider) ClearCredentials() error {
	// Missing items are not an error
	_ = p.keyring.Remove(AccessKeyItem)
	_ = p.keyring.Remove(SecretKeyItem)
	_ = p.keyring.Remove(RegionItem)

	return nil
}

// GetRegion retrieves the stored AWS region
func (p *SecureCredentialProvider) GetRegion() (string, error) {
	item, err := p.keyring.Get(RegionItem)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return defaultRegion, nil
		}
		return "", fmt.Errorf("failed to retrieve region: %w", err)
	}

	return string(item.Data), nil
}

// SetRegion stores the AWS region
func (p *SecureCredentialProvider) SetRegion(region string) error {
	if region == "" {
		return errors.New("region cannot be empty")
	}

	if err := p.keyring.Set(keyring.Item{
		Key:  RegionItem,
		Data: []byte(region),
	}); err != nil {
		return fmt.Errorf("failed to store region: %w", err)
	}

	return nil
}

// GetSetupGuidance provides user-friendly guidance for setting up clip backups
func GetSetupGuidance() string {
	return `Clip Backup Setup Guide:

1. Create an S3 bucket in your preferred region.

2. Create an IAM user with programmatic access and attach a policy like:
     {
       "Version": "2012-10-17",
       "Statement": [
         {
           "Effect": "Allow",
           "Action": [
             "s3:PutObject",
             "s3:PutObjectTagging",
             "s3:GetObject",
             "s3:DeleteObject",
             "s3:ListBucket"
           ],
           "Resource": [
             "arn:aws:s3:::your-bucket-name",
             "arn:aws:s3:::your-bucket-name/*"
           ]
         }
       ]
     }

3. Enter the Access Key ID and Secret Access Key in Settings > Backup.
   They are stored in your OS keychain, never in the settings file.

4. Enable backup and choose whether new clips are uploaded automatically.

Backups never delete clips from this device.`
}
