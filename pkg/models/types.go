package models

import (
	"path"
	"strings"
)

type EntryKind string

const (
	EntryDirectory EntryKind = "dir"
	EntryFile      EntryKind = "file"
)

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string    `json:"name" yaml:"name"`
	Path string    `json:"path" yaml:"path"`
	Kind EntryKind `json:"type" yaml:"type"`
}

func (e DirEntry) IsDir() bool {
	return e.Kind == EntryDirectory
}

// StoredFile is the file currently open in the editor. An empty
// RevisionToken means the file has not been committed yet.
type StoredFile struct {
	Path          string
	Metadata      map[string]interface{}
	Body          *string
	RevisionToken string
}

// Loaded reports whether the file has been fetched or created.
func (f *StoredFile) Loaded() bool {
	return f != nil && f.Metadata != nil
}

// IsNew reports whether the file has never been committed.
func (f *StoredFile) IsNew() bool {
	return f == nil || f.RevisionToken == ""
}

// BodyText returns the body, or "" when there is none.
func (f *StoredFile) BodyText() string {
	if f == nil || f.Body == nil {
		return ""
	}
	return *f.Body
}

// Reset discards the open file.
func (f *StoredFile) Reset() {
	*f = StoredFile{}
}

// Session holds the access credential and the browsing position.
type Session struct {
	AccessToken string
	CurrentPath string
}

func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// CollectionOf returns the first path segment, which names the collection.
func CollectionOf(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

// ParentPath returns the directory containing p ("" at the root).
func ParentPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}
