package aws

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"clip-recorder-app/pkg/errors"
)

// MaxPresignExpiration is the longest lifetime S3 accepts for a SigV4 presigned URL
const MaxPresignExpiration = 7 * 24 * time.Hour

// UploadProgress represents the progress of a clip upload
type UploadProgress struct {
	BytesUploaded int64   `json:"bytes_uploaded"`
	TotalBytes    int64   `json:"total_bytes"`
	Percentage    float64 `json:"percentage"`
}

// ObjectInfo is the subset of object metadata the backup view needs
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// S3Service defines the interface for S3 operations
type S3Service interface {
	// UploadFile uploads a file to S3 with optional progress tracking
	UploadFile(ctx context.Context, key string, filePath string, metadata map[string]string, progressCh chan<- UploadProgress) error

	// GeneratePresignedURL generates a presigned URL for downloading a file
	GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)

	// DeleteObject deletes an object from S3
	DeleteObject(ctx context.Context, key string) error

	// HeadObject retrieves metadata about an object without downloading it
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)

	// TestConnection tests the S3 connection by listing bucket contents
	TestConnection(ctx context.Context) error

	// Bucket returns the target bucket name
	Bucket() string
}

// S3Options configures the S3 client
type S3Options struct {
	Bucket string
	// Endpoint points the client at an S3 compatible store instead of AWS
	Endpoint string
	// Tags are attached to every uploaded object
	Tags map[string]string
}

// S3ServiceImpl implements S3Service using AWS SDK v2
type S3ServiceImpl struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	region    string
	tags      map[string]string
}

// NewS3Service creates a new S3Service instance
func NewS3Service(ctx context.Context, credProvider CredentialProvider, opts S3Options) (*S3ServiceImpl, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	creds, err := credProvider.GetCredentials(ctx)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidCredentials, "failed to get AWS credentials", err)
	}

	region, err := credProvider.GetRegion()
	if err != nil {
		return nil, fmt.Errorf("failed to get AWS region: %w", err)
	}

	cfg := aws.Config{
		Credentials: credentials.StaticCredentialsProvider{
			Value: creds,
		},
		Region:           region,
		RetryMode:        aws.RetryModeStandard,
		RetryMaxAttempts: 3,
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
			// S3 compatible stores commonly reject the default trailing checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})

	presigner := s3.NewPresignClient(client)

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		// 64MB parts keep long recordings under the 10,000 part limit
		u.PartSize = 64 * 1024 * 1024
		u.Concurrency = 2
	})

	return &S3ServiceImpl{
		client:    client,
		presigner: presigner,
		uploader:  uploader,
		bucket:    opts.Bucket,
		region:    region,
		tags:      opts.Tags,
	}, nil
}

// Bucket returns the target bucket name
func (s *S3ServiceImpl) Bucket() string {
	return s.bucket
}

// UploadFile uploads a file to S3 with progress tracking; the uploader switches to multipart for large clips
func (s *S3ServiceImpl) UploadFile(ctx context.Context, key string, filePath string, metadata map[string]string, progressCh chan<- UploadProgress) error {
	if key == "" {
		return fmt.Errorf("S3 object key cannot be empty")
	}

	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	file, err := os.Open(filePath)
	if err != nil {
		return errors.ClassifyError(fmt.Errorf("failed to open file '%s': %w", filePath, err))
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info for '%s': %w", filePath, err)
	}

	fileSize := fileInfo.Size()
	if fileSize == 0 {
		return errors.NewAppError(errors.ErrInvalidInput, fmt.Sprintf("file '%s' is empty", filepath.Base(filePath)), nil)
	}

	var reader io.Reader = file
	if progressCh != nil {
		reader = &progressReader{
			reader:     file,
			totalBytes: fileSize,
			progressCh: progressCh,
		}
	}

	objectMetadata := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		objectMetadata[k] = v
	}
	objectMetadata["upload-timestamp"] = time.Now().UTC().Format(time.RFC3339)
	objectMetadata["original-filename"] = filepath.Base(filePath)

	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 reader,
		ContentType:          aws.String(getContentType(filePath)),
		ContentLength:        aws.Int64(fileSize),
		Metadata:             objectMetadata,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	if tagging := formatTagsForUpload(s.tags); tagging != "" {
		input.Tagging = aws.String(tagging)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return s.handleS3Error("upload clip", err)
	}

	if progressCh != nil {
		select {
		case progressCh <- UploadProgress{
			BytesUploaded: fileSize,
			TotalBytes:    fileSize,
			Percentage:    100.0,
		}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// GeneratePresignedURL generates a presigned URL for downloading a clip
func (s *S3ServiceImpl) GeneratePresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("S3 object key cannot be empty")
	}

	if expiration <= 0 {
		return "", fmt.Errorf("expiration duration must be positive")
	}

	if expiration > MaxPresignExpiration {
		expiration = MaxPresignExpiration
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		return "", s.handleS3Error("generate presigned URL", err)
	}

	return request.URL, nil
}

// DeleteObject deletes an object from S3
func (s *S3ServiceImpl) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("S3 object key cannot be empty")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.handleS3Error("delete object", err)
	}

	return nil
}

// HeadObject retrieves metadata about an object without downloading it
func (s *S3ServiceImpl) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	if key == "" {
		return nil, fmt.Errorf("S3 object key cannot be empty")
	}

	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.handleS3Error("get object metadata", err)
	}

	info := &ObjectInfo{
		Key:      key,
		Size:     aws.ToInt64(output.ContentLength),
		Metadata: output.Metadata,
	}
	if output.LastModified != nil {
		info.LastModified = *output.LastModified
	}
	return info, nil
}

// TestConnection tests the S3 connection by attempting to list bucket contents
func (s *S3ServiceImpl) TestConnection(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return s.handleS3Error("test connection", err)
	}

	return nil
}

// handleS3Error converts SDK errors into AppErrors with user-facing messages
func (s *S3ServiceImpl) handleS3Error(operation string, err error) error {
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	switch {
	case stderrors.As(err, &notFound), stderrors.As(err, &noSuchKey):
		return errors.NewAppError(errors.ErrS3ObjectNotFound, "object not found during "+operation, err)
	case stderrors.As(err, &noSuchBucket):
		return errors.NewAppErrorWithContext(errors.ErrS3BucketNotFound, "bucket not found during "+operation, err, map[string]interface{}{
			"bucket": s.bucket,
		})
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return errors.NewAppErrorWithContext(errors.ErrS3AccessDenied, "access denied during "+operation, err, map[string]interface{}{
				"bucket": s.bucket,
			})
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return errors.NewAppError(errors.ErrInvalidCredentials, "credentials rejected during "+operation, err)
		case "NoSuchBucket":
			return errors.NewAppError(errors.ErrS3BucketNotFound, "bucket not found during "+operation, err)
		case "NotFound", "NoSuchKey":
			return errors.NewAppError(errors.ErrS3ObjectNotFound, "object not found during "+operation, err)
		}
	}

	classified := errors.ClassifyError(err)
	if classified.Code != errors.ErrUnknownError {
		return classified
	}

	return errors.NewAppError(errors.ErrBackupFailed, "AWS S3 operation failed: "+operation, err)
}

// getContentType determines the content type based on file extension
func getContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".avi":
		return "video/x-msvideo"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// formatTagsForUpload renders tags as the URL query string PutObject expects, keys sorted
func formatTagsForUpload(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		if k == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(tags[k]))
	}
	return strings.Join(parts, "&")
}

// progressReader wraps an io.Reader to provide upload progress updates
type progressReader struct {
	reader     io.Reader
	totalBytes int64
	bytesRead  int64
	progressCh chan<- UploadProgress
}

// Read implements io.Reader and sends progress updates
func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesRead += int64(n)
		percentage := float64(pr.bytesRead) / float64(pr.totalBytes) * 100.0

		// Drop the update when the consumer is behind
		select {
		case pr.progressCh <- UploadProgress{
			BytesUploaded: pr.bytesRead,
			TotalBytes:    pr.totalBytes,
			Percentage:    percentage,
		}:
		default:
		}
	}
	return n, err
}
