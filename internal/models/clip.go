package models

import "time"

// CreatedLabelLayout is the layout used for ClipRecord.CreatedLabel
const CreatedLabelLayout = "2006-01-02 15:04:05"

// ClipRecord represents one recorded clip file found in the storage directory
type ClipRecord struct {
	ID              string    `json:"id"`
	StoragePath     string    `json:"storage_path"`
	DisplayName     string    `json:"display_name"`
	CreatedLabel    string    `json:"created_label"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedFromName bool      `json:"created_from_name"` // false when CreatedAt is the listing time
}

// CatalogState distinguishes "never loaded" from "loaded but empty"
type CatalogState string

const (
	CatalogNotLoaded CatalogState = "not_loaded"
	CatalogEmpty     CatalogState = "empty"
	CatalogPopulated CatalogState = "populated"
)

// CatalogSnapshot is the result of one directory scan
type CatalogSnapshot struct {
	State    CatalogState `json:"state"`
	Clips    []ClipRecord `json:"clips"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// IDs returns the clip identifiers of the snapshot in order
func (s CatalogSnapshot) IDs() []string {
	ids := make([]string, len(s.Clips))
	for i, clip := range s.Clips {
		ids[i] = clip.ID
	}
	return ids
}

// Contains reports whether a clip with the given id is part of the snapshot
func (s CatalogSnapshot) Contains(id string) bool {
	for _, clip := range s.Clips {
		if clip.ID == id {
			return true
		}
	}
	return false
}

// BackupStatus describes whether a clip has a copy in the backup bucket
type BackupStatus string

const (
	BackupUnknown   BackupStatus = "unknown"
	BackupMissing   BackupStatus = "missing"
	BackupUploading BackupStatus = "uploading"
	BackupStored    BackupStatus = "stored"
	BackupError     BackupStatus = "error"
)

// ClipView is a ClipRecord with the details the library list shows
type ClipView struct {
	ClipRecord
	SizeBytes int64        `json:"size_bytes"`
	Backup    BackupStatus `json:"backup"`
}
