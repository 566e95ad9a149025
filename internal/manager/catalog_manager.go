package manager

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"clip-recorder-app/internal/clock"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/pkg/errors"
	"clip-recorder-app/pkg/logger"
)

// DeleteConfirmer asks the user to approve an irreversible delete
type DeleteConfirmer interface {
	ConfirmDelete(ctx context.Context, clip models.ClipRecord) (bool, error)
}

// ConfirmFunc adapts a function to DeleteConfirmer
type ConfirmFunc func(ctx context.Context, clip models.ClipRecord) (bool, error)

// ConfirmDelete calls f
func (f ConfirmFunc) ConfirmDelete(ctx context.Context, clip models.ClipRecord) (bool, error) {
	return f(ctx, clip)
}

// SkipConfirmation approves every delete; for tests and non-interactive callers
var SkipConfirmation DeleteConfirmer = ConfirmFunc(func(context.Context, models.ClipRecord) (bool, error) {
	return true, nil
})

// CatalogManager interface defines the contract for the clip catalog
type CatalogManager interface {
	// Refresh re-scans the storage directory and publishes a fresh snapshot
	Refresh(ctx context.Context) ([]models.ClipRecord, error)

	// Delete removes a clip after confirmation; reports whether the file was deleted
	Delete(ctx context.Context, clip models.ClipRecord, confirmer DeleteConfirmer) (bool, error)

	// Snapshot returns the last published snapshot
	Snapshot() models.CatalogSnapshot

	// OnChange registers a listener for published snapshots
	OnChange(listener func(models.CatalogSnapshot))

	// SizeOf returns the size of a clip file in bytes
	SizeOf(ctx context.Context, clip models.ClipRecord) (int64, error)
}

// CatalogOptions configures a CatalogManager
type CatalogOptions struct {
	Prefix    string
	Extension string
	Clock     clock.Clock
	Location  *time.Location
}

// CatalogManagerImpl implements the CatalogManager interface
type CatalogManagerImpl struct {
	fs        storage.Filesystem
	clock     clock.Clock
	prefix    string
	extension string
	location  *time.Location
	logger    *logger.Logger

	mu        sync.Mutex
	snapshot  models.CatalogSnapshot
	listeners []func(models.CatalogSnapshot)
}

// NewCatalogManager creates a catalog over fs.BaseDir(); nothing is loaded until Refresh
func NewCatalogManager(fs storage.Filesystem, opts CatalogOptions) *CatalogManagerImpl {
	if opts.Prefix == "" {
		opts.Prefix = DefaultClipPrefix
	}
	if opts.Extension == "" {
		opts.Extension = DefaultClipExtension
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &CatalogManagerImpl{
		fs:        fs,
		clock:     opts.Clock,
		prefix:    opts.Prefix,
		extension: opts.Extension,
		location:  opts.Location,
		snapshot:  models.CatalogSnapshot{State: models.CatalogNotLoaded},
		logger:    logger.NewWithComponent("catalog_manager"),
	}
}

// Refresh lists the storage directory and maps matching files to clip records, newest first
func (cm *CatalogManagerImpl) Refresh(ctx context.Context) ([]models.ClipRecord, error) {
	dir := cm.fs.BaseDir()
	names, err := cm.fs.ListDirectory(ctx, dir)
	if err != nil {
		cm.logger.ErrorWithOperation("refresh", "Failed to list clip directory", err)
		return nil, errors.NewAppErrorWithContext(errors.ErrListFailed, "failed to list clips", err, map[string]interface{}{
			"directory": dir,
		})
	}

	listedAt := cm.clock.Now()
	clips := make([]models.ClipRecord, 0, len(names))
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), cm.extension) {
			continue
		}
		clips = append(clips, cm.newClipRecord(dir, name, listedAt))
	}
	sortClips(clips)

	snapshot := models.CatalogSnapshot{
		State:    models.CatalogEmpty,
		Clips:    clips,
		LoadedAt: listedAt,
	}
	if len(clips) > 0 {
		snapshot.State = models.CatalogPopulated
	}

	cm.publish(snapshot)

	cm.logger.DebugWithFields("Catalog refreshed", map[string]interface{}{
		"clip_count": len(clips),
		"entries":    len(names),
	})

	result := make([]models.ClipRecord, len(clips))
	copy(result, clips)
	return result, nil
}

// Delete asks confirmer, deletes the backing file and refreshes regardless of the outcome
func (cm *CatalogManagerImpl) Delete(ctx context.Context, clip models.ClipRecord, confirmer DeleteConfirmer) (bool, error) {
	if confirmer == nil {
		return false, errors.NewAppError(errors.ErrConfirmationRequired, "delete requires confirmation", nil)
	}

	confirmed, err := confirmer.ConfirmDelete(ctx, clip)
	if err != nil {
		return false, errors.WrapError(err, errors.ErrOperationCanceled, "delete confirmation failed")
	}
	if !confirmed {
		cm.logger.DebugWithFields("Delete declined", map[string]interface{}{
			"clip_id": clip.ID,
		})
		return false, nil
	}

	deleteErr := cm.fs.DeleteFile(ctx, clip.StoragePath)

	if _, refreshErr := cm.Refresh(ctx); refreshErr != nil {
		cm.logger.WarnWithError("Refresh after delete failed", refreshErr)
	}

	if deleteErr != nil {
		cm.logger.ErrorWithFields("Failed to delete clip", map[string]interface{}{
			"clip_id": clip.ID,
			"error":   deleteErr.Error(),
		})
		appErr := errors.NewAppErrorWithContext(errors.ErrDeleteFailed, "failed to delete "+clip.DisplayName, deleteErr, map[string]interface{}{
			"clip_id": clip.ID,
		})
		appErr.UserMessage = deleteUserMessage(deleteErr, clip)
		return false, appErr
	}

	cm.logger.InfoWithFields("Clip deleted", map[string]interface{}{
		"clip_id": clip.ID,
	})
	return true, nil
}

// Snapshot returns the last published snapshot
func (cm *CatalogManagerImpl) Snapshot() models.CatalogSnapshot {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return copySnapshot(cm.snapshot)
}

// OnChange registers a listener for published snapshots
func (cm *CatalogManagerImpl) OnChange(listener func(models.CatalogSnapshot)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.listeners = append(cm.listeners, listener)
}

// SizeOf returns the size of a clip file in bytes
func (cm *CatalogManagerImpl) SizeOf(ctx context.Context, clip models.ClipRecord) (int64, error) {
	info, err := cm.fs.Stat(ctx, clip.StoragePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// publish replaces the current snapshot; the last refresh to complete wins
func (cm *CatalogManagerImpl) publish(snapshot models.CatalogSnapshot) {
	cm.mu.Lock()
	cm.snapshot = snapshot
	listeners := append([]func(models.CatalogSnapshot){}, cm.listeners...)
	cm.mu.Unlock()

	for _, listener := range listeners {
		listener(copySnapshot(snapshot))
	}
}

func (cm *CatalogManagerImpl) newClipRecord(dir, name string, listedAt time.Time) models.ClipRecord {
	createdAt, fromName := cm.parseTimestamp(name)
	if !fromName {
		createdAt = listedAt
	}
	createdAt = createdAt.In(cm.location)

	return models.ClipRecord{
		ID:              name,
		StoragePath:     filepath.Join(dir, name),
		DisplayName:     name,
		CreatedLabel:    createdAt.Format(models.CreatedLabelLayout),
		CreatedAt:       createdAt,
		CreatedFromName: fromName,
	}
}

// parseTimestamp extracts the millisecond epoch from <prefix><ms><ext>
func (cm *CatalogManagerImpl) parseTimestamp(name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasPrefix(base, cm.prefix) {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimPrefix(base, cm.prefix), 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// sortClips orders by embedded timestamp descending; names without one follow, by name
func sortClips(clips []models.ClipRecord) {
	sort.SliceStable(clips, func(i, j int) bool {
		a, b := clips[i], clips[j]
		if a.CreatedFromName != b.CreatedFromName {
			return a.CreatedFromName
		}
		if a.CreatedFromName && !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func copySnapshot(snapshot models.CatalogSnapshot) models.CatalogSnapshot {
	if snapshot.Clips != nil {
		clips := make([]models.ClipRecord, len(snapshot.Clips))
		copy(clips, snapshot.Clips)
		snapshot.Clips = clips
	}
	return snapshot
}

func deleteUserMessage(err error, clip models.ClipRecord) string {
	switch errors.ClassifyError(err).Code {
	case errors.ErrFileNotFound:
		return clip.DisplayName + " no longer exists. The list has been refreshed."
	case errors.ErrAccessDenied:
		return "Permission denied while deleting " + clip.DisplayName + "."
	default:
		return "Could not delete " + clip.DisplayName + "."
	}
}
