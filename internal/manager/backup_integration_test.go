//go:build integration

package manager

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clip-recorder-app/internal/aws"
	"clip-recorder-app/internal/models"
)

// integrationEnv is read from S3_BUCKET, AWS_REGION, AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and, for S3 compatible stores, S3_ENDPOINT.
type integrationEnv struct {
	bucket    string
	region    string
	accessKey string
	secretKey string
	endpoint  string
}

func loadIntegrationEnv(t *testing.T) integrationEnv {
	t.Helper()

	env := integrationEnv{
		bucket:    os.Getenv("S3_BUCKET"),
		region:    os.Getenv("AWS_REGION"),
		accessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		secretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		endpoint:  os.Getenv("S3_ENDPOINT"),
	}

	var missing []string
	for name, value := range map[string]string{
		"S3_BUCKET":             env.bucket,
		"AWS_REGION":            env.region,
		"AWS_ACCESS_KEY_ID":     env.accessKey,
		"AWS_SECRET_ACCESS_KEY": env.secretKey,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		t.Skipf("missing environment variables: %v", missing)
	}
	return env
}

func newIntegrationS3(t *testing.T, env integrationEnv) aws.S3Service {
	t.Helper()

	credProvider, err := aws.NewSecureCredentialProvider(aws.KeyringOptions{
		ServiceName:  "clip-recorder-app-integration",
		FileDir:      t.TempDir(),
		FilePassword: "integration",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = credProvider.ClearCredentials() })

	require.NoError(t, credProvider.StoreCredentials(env.accessKey, env.secretKey, env.region))

	s3Service, err := aws.NewS3Service(context.Background(), credProvider, aws.S3Options{
		Bucket:   env.bucket,
		Endpoint: env.endpoint,
		Tags:     map[string]string{"test": "integration"},
	})
	require.NoError(t, err)
	return s3Service
}

func TestBackupManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := loadIntegrationEnv(t)
	s3Service := newIntegrationS3(t, env)

	prefix := fmt.Sprintf("integration-test/%d/", time.Now().UnixNano())
	bm := NewBackupManager(s3Service, BackupOptions{KeyPrefix: prefix})

	dir := t.TempDir()
	clip := testClip(dir, "clip_1000.mp4")
	content := make([]byte, 6*1024*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(clip.StoragePath, content, 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	t.Run("backup with progress", func(t *testing.T) {
		progressCh := make(chan aws.UploadProgress, 64)
		received := make(chan bool, 1)
		go func() {
			seen := false
			for progress := range progressCh {
				seen = true
				t.Logf("Upload progress: %.2f%% (%d/%d bytes)",
					progress.Percentage, progress.BytesUploaded, progress.TotalBytes)
			}
			received <- seen
		}()

		record, err := bm.BackupClip(ctx, clip, progressCh)
		close(progressCh)
		require.NoError(t, err)
		assert.True(t, <-received, "progress updates should be received")
		assert.Equal(t, prefix+"clip_1000.mp4", record.Key)
		assert.Equal(t, models.BackupStored, bm.Status(clip.ID))

		info, err := s3Service.HeadObject(ctx, record.Key)
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, clip.ID, info.Metadata["clip-id"])
	})

	t.Run("verify and share", func(t *testing.T) {
		missing := testClip(dir, "clip_2000.mp4")

		result, err := bm.VerifyBackups(ctx, []models.ClipRecord{clip, missing})
		require.NoError(t, err)
		assert.Equal(t, []string{"clip_1000.mp4"}, result.BackedUp)
		assert.Equal(t, []string{"clip_2000.mp4"}, result.Missing)
		assert.Empty(t, result.Errors)

		url, err := bm.ShareLink(ctx, clip, time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "X-Amz-Algorithm=AWS4-HMAC-SHA256")
		assert.Contains(t, url, "X-Amz-Expires=3600")
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, bm.RemoveBackup(ctx, clip))
		assert.Equal(t, models.BackupMissing, bm.Status(clip.ID))

		_, err := s3Service.HeadObject(ctx, bm.KeyFor(clip))
		assert.Error(t, err)
	})
}
