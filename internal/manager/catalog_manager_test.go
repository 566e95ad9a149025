package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clip-recorder-app/internal/clock"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	apperrors "clip-recorder-app/pkg/errors"
)

func newTestCatalog(t *testing.T, files ...string) (*CatalogManagerImpl, *storage.LocalFilesystem, *clock.FakeClock) {
	fs, err := storage.NewLocalFilesystem(t.TempDir())
	require.NoError(t, err)

	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(fs.BaseDir(), name), []byte(name), 0o644))
	}

	fakeClock := clock.Fake(testEpoch)
	cm := NewCatalogManager(fs, CatalogOptions{Clock: fakeClock, Location: time.UTC})
	return cm, fs, fakeClock
}

func TestCatalogManager_NotLoadedBeforeRefresh(t *testing.T) {
	cm, _, _ := newTestCatalog(t)

	snapshot := cm.Snapshot()
	assert.Equal(t, models.CatalogNotLoaded, snapshot.State)
	assert.Empty(t, snapshot.Clips)
}

func TestCatalogManager_RefreshFiltersAndSorts(t *testing.T) {
	cm, fs, _ := newTestCatalog(t, "clip_1000.mp4", "clip_2000.mp4", "notes.txt")

	clips, err := cm.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, clips, 2)

	assert.Equal(t, []string{"clip_2000.mp4", "clip_1000.mp4"}, []string{clips[0].ID, clips[1].ID})

	newest := clips[0]
	assert.Equal(t, "clip_2000.mp4", newest.DisplayName)
	assert.Equal(t, filepath.Join(fs.BaseDir(), "clip_2000.mp4"), newest.StoragePath)
	assert.True(t, newest.CreatedFromName)
	assert.True(t, newest.CreatedAt.Equal(time.UnixMilli(2000)))
	assert.Equal(t, "1970-01-01 00:00:02", newest.CreatedLabel)

	snapshot := cm.Snapshot()
	assert.Equal(t, models.CatalogPopulated, snapshot.State)
	assert.False(t, snapshot.Contains("notes.txt"))
	assert.True(t, snapshot.LoadedAt.Equal(testEpoch))
}

func TestCatalogManager_RefreshEmptyDirectory(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "notes.txt")

	clips, err := cm.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clips)
	assert.Equal(t, models.CatalogEmpty, cm.Snapshot().State)
}

func TestCatalogManager_RefreshFallsBackToListingTime(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "holiday.mp4", "CLIP_5000.MP4", "clip_abc.mp4", "clip_3000.mp4")

	clips, err := cm.Refresh(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(clips))
	for i, clip := range clips {
		ids[i] = clip.ID
	}
	assert.Equal(t, []string{"clip_3000.mp4", "CLIP_5000.MP4", "clip_abc.mp4", "holiday.mp4"}, ids)

	fallback := clips[3]
	assert.False(t, fallback.CreatedFromName)
	assert.True(t, fallback.CreatedAt.Equal(testEpoch))
	assert.Equal(t, testEpoch.Format(models.CreatedLabelLayout), fallback.CreatedLabel)
}

func TestCatalogManager_RefreshIsIdempotent(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4", "clip_2000.mp4")
	ctx := context.Background()

	first, err := cm.Refresh(ctx)
	require.NoError(t, err)
	second, err := cm.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCatalogManager_RefreshReturnsFreshSlices(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")

	clips, err := cm.Refresh(context.Background())
	require.NoError(t, err)
	clips[0].DisplayName = "mutated"

	assert.Equal(t, "clip_1000.mp4", cm.Snapshot().Clips[0].DisplayName)

	snapshot := cm.Snapshot()
	snapshot.Clips[0].DisplayName = "mutated"
	assert.Equal(t, "clip_1000.mp4", cm.Snapshot().Clips[0].DisplayName)
}

func TestCatalogManager_RefreshSeesExternalChanges(t *testing.T) {
	cm, fs, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	_, err := cm.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(fs.BaseDir(), "clip_4000.mp4"), nil, 0o644))
	require.NoError(t, os.Remove(filepath.Join(fs.BaseDir(), "clip_1000.mp4")))

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "clip_4000.mp4", clips[0].ID)
}

func TestCatalogManager_RefreshListFailure(t *testing.T) {
	cm, fs, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	_, err := cm.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(fs.BaseDir()))

	_, err = cm.Refresh(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrListFailed))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// the previous snapshot stays until a refresh succeeds
	assert.True(t, cm.Snapshot().Contains("clip_1000.mp4"))
}

func TestCatalogManager_OnChange(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")

	var published []models.CatalogSnapshot
	cm.OnChange(func(snapshot models.CatalogSnapshot) {
		published = append(published, snapshot)
	})

	_, err := cm.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, models.CatalogPopulated, published[0].State)
}

func TestCatalogManager_DeleteConfirmed(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4", "clip_2000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)
	target := clips[1]

	var asked []string
	confirmer := ConfirmFunc(func(_ context.Context, clip models.ClipRecord) (bool, error) {
		asked = append(asked, clip.ID)
		return true, nil
	})

	deleted, err := cm.Delete(ctx, target, confirmer)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"clip_1000.mp4"}, asked)

	_, statErr := os.Stat(target.StoragePath)
	assert.True(t, os.IsNotExist(statErr))

	assert.False(t, cm.Snapshot().Contains(target.ID))
	clips, err = cm.Refresh(ctx)
	require.NoError(t, err)
	for _, clip := range clips {
		assert.NotEqual(t, target.ID, clip.ID)
	}
}

func TestCatalogManager_DeleteLastClipLeavesEmptyState(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)

	deleted, err := cm.Delete(ctx, clips[0], SkipConfirmation)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, models.CatalogEmpty, cm.Snapshot().State)
}

func TestCatalogManager_DeleteDeclined(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)

	decline := ConfirmFunc(func(context.Context, models.ClipRecord) (bool, error) { return false, nil })
	deleted, err := cm.Delete(ctx, clips[0], decline)
	assert.NoError(t, err)
	assert.False(t, deleted)

	_, statErr := os.Stat(clips[0].StoragePath)
	assert.NoError(t, statErr)
}

func TestCatalogManager_DeleteRequiresConfirmer(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)

	deleted, err := cm.Delete(ctx, clips[0], nil)
	require.Error(t, err)
	assert.False(t, deleted)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConfirmationRequired))

	_, statErr := os.Stat(clips[0].StoragePath)
	assert.NoError(t, statErr)
}

func TestCatalogManager_DeleteConfirmerError(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)

	failing := ConfirmFunc(func(context.Context, models.ClipRecord) (bool, error) {
		return false, errors.New("dialog closed")
	})
	deleted, err := cm.Delete(ctx, clips[0], failing)
	assert.False(t, deleted)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOperationCanceled))
}

func TestCatalogManager_DeleteExternallyRemovedFile(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4", "clip_2000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)
	gone := clips[0]
	require.NoError(t, os.Remove(gone.StoragePath))

	refreshed := 0
	cm.OnChange(func(models.CatalogSnapshot) { refreshed++ })

	deleted, err := cm.Delete(ctx, gone, SkipConfirmation)
	require.Error(t, err)
	assert.False(t, deleted)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDeleteFailed))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.GetUserMessage(), "no longer exists")

	assert.Equal(t, 1, refreshed)
	assert.Equal(t, []string{"clip_1000.mp4"}, cm.Snapshot().IDs())
}

func TestCatalogManager_SizeOf(t *testing.T) {
	cm, _, _ := newTestCatalog(t, "clip_1000.mp4")
	ctx := context.Background()

	clips, err := cm.Refresh(ctx)
	require.NoError(t, err)

	size, err := cm.SizeOf(ctx, clips[0])
	require.NoError(t, err)
	assert.Equal(t, int64(len("clip_1000.mp4")), size)
}
