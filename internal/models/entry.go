package models

import "time"

// RootParentID is the parent of every top-level entry.
const RootParentID = "/"

type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry is a catalog row describing a stored file or a folder.
// CreatedAt is epoch milliseconds and never changes after insertion.
type Entry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StorageKey string `json:"-"`
	Kind       Kind   `json:"type"`
	SizeBytes  int64  `json:"size"`
	ParentID   string `json:"parent_id"`
	CreatedAt  int64  `json:"created_at"`
}

func (e *Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// Age reports how long ago the entry was created relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.CreatedAt))
}
