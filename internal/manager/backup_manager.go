package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-recorder-app/internal/aws"
	"clip-recorder-app/internal/clock"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/pkg/errors"
	"clip-recorder-app/pkg/logger"
)

// DefaultBackupKeyPrefix is where clips live inside the backup bucket
const DefaultBackupKeyPrefix = "clips/"

// BackupManager interface defines the contract for copying clips to S3
type BackupManager interface {
	// Configured reports whether an S3 service is available
	Configured() bool

	// BackupClip uploads the clip file; the local file is never modified
	BackupClip(ctx context.Context, clip models.ClipRecord, progressCh chan<- aws.UploadProgress) (*BackupRecord, error)

	// ShareLink returns a presigned download URL for a backed up clip
	ShareLink(ctx context.Context, clip models.ClipRecord, ttl time.Duration) (string, error)

	// VerifyBackups checks which clips have a copy in the bucket
	VerifyBackups(ctx context.Context, clips []models.ClipRecord) (*VerifyResult, error)

	// RemoveBackup deletes the remote copy of a clip
	RemoveBackup(ctx context.Context, clip models.ClipRecord) error

	// Status returns the last known backup state of a clip
	Status(clipID string) models.BackupStatus

	// IsOfflineMode returns true after a network failure until the next successful call
	IsOfflineMode() bool

	// SetOfflineMode sets the offline mode state
	SetOfflineMode(offline bool)

	// Forget drops cached statuses of clips that are no longer in the catalog
	Forget(present []models.ClipRecord)
}

// BackupRecord describes one completed upload
type BackupRecord struct {
	UploadID   string    `json:"upload_id"`
	ClipID     string    `json:"clip_id"`
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// VerifyResult contains the results of a backup verification pass
type VerifyResult struct {
	TotalClips  int                       `json:"total_clips"`
	BackedUp    []string                  `json:"backed_up"`
	Missing     []string                  `json:"missing"`
	Errors      []BackupVerificationError `json:"errors"`
	Duration    time.Duration             `json:"duration"`
	OfflineMode bool                      `json:"offline_mode"`
}

// BackupVerificationError represents an error while checking one clip
type BackupVerificationError struct {
	ClipID  string           `json:"clip_id"`
	Message string           `json:"message"`
	Code    errors.ErrorCode `json:"code"`
}

// BackupOptions configures a BackupManager
type BackupOptions struct {
	KeyPrefix string
	Clock     clock.Clock
}

// BackupManagerImpl implements the BackupManager interface
type BackupManagerImpl struct {
	s3Service aws.S3Service
	keyPrefix string
	clock     clock.Clock
	logger    *logger.Logger

	mu          sync.Mutex
	statuses    map[string]models.BackupStatus
	offlineMode bool
}

// NewBackupManager creates a BackupManager; a nil s3Service leaves backups unconfigured
func NewBackupManager(s3Service aws.S3Service, opts BackupOptions) *BackupManagerImpl {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultBackupKeyPrefix
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	return &BackupManagerImpl{
		s3Service: s3Service,
		keyPrefix: opts.KeyPrefix,
		clock:     opts.Clock,
		statuses:  make(map[string]models.BackupStatus),
		logger:    logger.NewWithComponent("backup_manager"),
	}
}

// Configured reports whether an S3 service is available
func (bm *BackupManagerImpl) Configured() bool {
	return bm.s3Service != nil
}

// KeyFor returns the object key of a clip
func (bm *BackupManagerImpl) KeyFor(clip models.ClipRecord) string {
	return bm.keyPrefix + clip.ID
}

// BackupClip uploads the clip file to S3
func (bm *BackupManagerImpl) BackupClip(ctx context.Context, clip models.ClipRecord, progressCh chan<- aws.UploadProgress) (*BackupRecord, error) {
	if !bm.Configured() {
		return nil, errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil)
	}
	if clip.ID == "" || clip.StoragePath == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "clip has no backing file", nil)
	}

	record := &BackupRecord{
		UploadID: uuid.New().String(),
		ClipID:   clip.ID,
		Bucket:   bm.s3Service.Bucket(),
		Key:      bm.KeyFor(clip),
	}

	metadata := map[string]string{
		"clip-id":   clip.ID,
		"upload-id": record.UploadID,
	}
	if clip.CreatedFromName {
		metadata["recorded-at"] = clip.CreatedAt.UTC().Format(time.RFC3339)
	}

	bm.setStatus(clip.ID, models.BackupUploading)

	err := bm.logger.LogOperation("backup_clip", func() error {
		return bm.s3Service.UploadFile(ctx, record.Key, clip.StoragePath, metadata, progressCh)
	})
	if err != nil {
		bm.setStatus(clip.ID, models.BackupError)
		bm.noteFailure(err)
		if errors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.ErrBackupFailed, "failed to back up "+clip.DisplayName)
	}

	record.UploadedAt = bm.clock.Now()
	bm.setStatus(clip.ID, models.BackupStored)
	bm.SetOfflineMode(false)

	bm.logger.InfoWithFields("Clip backed up", map[string]interface{}{
		"clip_id":   clip.ID,
		"key":       record.Key,
		"upload_id": record.UploadID,
	})
	return record, nil
}

// ShareLink returns a presigned download URL for a backed up clip
func (bm *BackupManagerImpl) ShareLink(ctx context.Context, clip models.ClipRecord, ttl time.Duration) (string, error) {
	if !bm.Configured() {
		return "", errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil)
	}
	if bm.Status(clip.ID) != models.BackupStored {
		if _, err := bm.s3Service.HeadObject(ctx, bm.KeyFor(clip)); err != nil {
			if errors.HasCode(err, errors.ErrS3ObjectNotFound) {
				bm.setStatus(clip.ID, models.BackupMissing)
			}
			return "", errors.NewAppErrorWithContext(errors.ErrS3ObjectNotFound, "clip has not been backed up", err, map[string]interface{}{
				"clip_id": clip.ID,
			})
		}
		bm.setStatus(clip.ID, models.BackupStored)
	}

	url, err := bm.s3Service.GeneratePresignedURL(ctx, bm.KeyFor(clip), ttl)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrBackupFailed, "failed to create share link")
	}

	bm.logger.InfoWithFields("Share link created", map[string]interface{}{
		"clip_id":    clip.ID,
		"expires_in": ttl.String(),
	})
	return url, nil
}

// VerifyBackups tests the connection and then checks each clip with HeadObject
func (bm *BackupManagerImpl) VerifyBackups(ctx context.Context, clips []models.ClipRecord) (*VerifyResult, error) {
	startTime := bm.clock.Now()

	result := &VerifyResult{
		TotalClips: len(clips),
		BackedUp:   []string{},
		Missing:    []string{},
		Errors:     []BackupVerificationError{},
	}

	if !bm.Configured() {
		result.OfflineMode = true
		return result, nil
	}

	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := bm.s3Service.TestConnection(testCtx)
	cancel()
	if err != nil {
		bm.logger.ErrorWithError("S3 connection test failed", err)
		bm.noteFailure(err)
		result.OfflineMode = bm.IsOfflineMode()
		result.Duration = bm.clock.Now().Sub(startTime)
		return result, errors.WrapError(err, errors.ClassifyError(err).Code, "backup verification failed")
	}
	bm.SetOfflineMode(false)

	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		_, err := bm.s3Service.HeadObject(verifyCtx, bm.KeyFor(clip))
		cancel()

		switch {
		case err == nil:
			result.BackedUp = append(result.BackedUp, clip.ID)
			bm.setStatus(clip.ID, models.BackupStored)
		case errors.HasCode(err, errors.ErrS3ObjectNotFound):
			result.Missing = append(result.Missing, clip.ID)
			bm.setStatus(clip.ID, models.BackupMissing)
		default:
			appErr := errors.ClassifyError(err)
			result.Errors = append(result.Errors, BackupVerificationError{
				ClipID:  clip.ID,
				Message: appErr.GetUserMessage(),
				Code:    appErr.Code,
			})
			bm.setStatus(clip.ID, models.BackupError)
		}
	}

	result.Duration = bm.clock.Now().Sub(startTime)
	bm.logger.InfoWithFields("Backup verification completed", map[string]interface{}{
		"total":     result.TotalClips,
		"backed_up": len(result.BackedUp),
		"missing":   len(result.Missing),
		"errors":    len(result.Errors),
	})
	return result, nil
}

// RemoveBackup deletes the remote copy of a clip
func (bm *BackupManagerImpl) RemoveBackup(ctx context.Context, clip models.ClipRecord) error {
	if !bm.Configured() {
		return errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil)
	}

	if err := bm.s3Service.DeleteObject(ctx, bm.KeyFor(clip)); err != nil {
		bm.noteFailure(err)
		return errors.WrapError(err, errors.ErrBackupFailed, fmt.Sprintf("failed to remove backup of %s", clip.DisplayName))
	}

	bm.setStatus(clip.ID, models.BackupMissing)
	return nil
}

// Status returns the last known backup state of a clip
func (bm *BackupManagerImpl) Status(clipID string) models.BackupStatus {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	if status, ok := bm.statuses[clipID]; ok {
		return status
	}
	return models.BackupUnknown
}

// IsOfflineMode returns true if the last S3 call failed on the network
func (bm *BackupManagerImpl) IsOfflineMode() bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.offlineMode
}

// SetOfflineMode sets the offline mode state
func (bm *BackupManagerImpl) SetOfflineMode(offline bool) {
	bm.mu.Lock()
	changed := bm.offlineMode != offline
	bm.offlineMode = offline
	bm.mu.Unlock()

	if !changed {
		return
	}
	if offline {
		bm.logger.Info("Entered offline mode")
	} else {
		bm.logger.Info("Exited offline mode")
	}
}

// Forget drops the cached status of clips that are no longer in the catalog
func (bm *BackupManagerImpl) Forget(present []models.ClipRecord) {
	keep := make(map[string]bool, len(present))
	for _, clip := range present {
		keep[clip.ID] = true
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	for id := range bm.statuses {
		if !keep[id] {
			delete(bm.statuses, id)
		}
	}
}

func (bm *BackupManagerImpl) setStatus(clipID string, status models.BackupStatus) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.statuses[clipID] = status
}

func (bm *BackupManagerImpl) noteFailure(err error) {
	if errors.IsNetworkError(err) {
		bm.SetOfflineMode(true)
	}
}
