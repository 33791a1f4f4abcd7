// Package models defines the domain types for the document catalog.
package models

import "time"

// CatalogEntry is one persisted metadata record describing a document.
type CatalogEntry struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"filepath"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	SizeBytes    int64     `json:"file_size"`
	DateAdded    time.Time `json:"date_added"`
	LastModified time.Time `json:"last_modified"`
}

// EntryUpdate is a partial update of a catalog entry. Nil fields are left unchanged.
// A zero LastModified means "now".
type EntryUpdate struct {
	Title        *string
	Description  *string
	SizeBytes    *int64
	FilePath     *string // re-derived by the synchronizer only
	LastModified time.Time
}

// Empty reports whether the update changes no field.
func (u EntryUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.SizeBytes == nil && u.FilePath == nil
}

// SafePath is a validated, existence-checked location inside the document root.
type SafePath struct {
	Path     string `json:"-"`
	Filename string `json:"filename"`
}
