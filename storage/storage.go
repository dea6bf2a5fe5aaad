// Package storage defines the remote file store contract shared by the OneDrive and
// Google Drive backends.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	errs "github.com/leo-automation/leo-ring/errors"
)

// ConflictPolicy selects what an upload does when the destination already exists.
type ConflictPolicy string

const (
	Fail    ConflictPolicy = "fail"
	Skip    ConflictPolicy = "skip"
	Replace ConflictPolicy = "replace"
)

func ParsePolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case Fail, Skip, Replace:
		return p, nil
	default:
		return "", fmt.Errorf("invalid conflict policy '%v'", s)
	}
}

// Item is the metadata of a stored file. Parent is the provider's path of the
// containing folder.
type Item struct {
	ID     string
	Name   string
	Parent string
	WebURL string
	Size   int64
}

// Path is the provider path of the item itself.
func (i Item) Path() string {
	return strings.TrimSuffix(i.Parent, "/") + "/" + i.Name
}

// Location addresses a resolved path. For a path inside a folder shared by another
// account, DriveID/ItemID identify the shared folder and Rest is the remainder of
// the path below it.
type Location struct {
	DriveID string
	ItemID  string
	Rest    string
}

type Store interface {
	Resolve(ctx context.Context, path string) (Location, error)
	Info(ctx context.Context, path string) (*Item, error)
	Download(ctx context.Context, path string, w io.Writer) error
	Upload(ctx context.Context, src io.Reader, size int64, dest string, policy ConflictPolicy) (*Item, error)
}

// UploadFile uploads a local file.
func UploadFile(ctx context.Context, store Store, file, dest string, policy ConflictPolicy) (*Item, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return store.Upload(ctx, f, info.Size(), dest, policy)
}

// DownloadFile downloads to a local file, removing the partial file on failure.
func DownloadFile(ctx context.Context, store Store, src, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	if err := store.Download(ctx, src, f); err != nil {
		f.Close()
		os.Remove(file)
		return err
	}

	return f.Close()
}

// Split returns the first segment of a path and the remainder, without leading or
// trailing slashes.
func Split(p string) (string, string) {
	rel := strings.Trim(path.Clean("/"+p), "/")
	if rel == "" {
		return "", ""
	}

	base, rest, _ := strings.Cut(rel, "/")

	return base, rest
}

// NotFound is a convenience constructor for a missing remote path.
func NotFound(p string) error {
	return errs.New(errs.KindNotFound, "%v not found", p)
}

// AlreadyExists is a convenience constructor for an upload conflict.
func AlreadyExists(p string) error {
	return errs.New(errs.KindAlreadyExists, "%v already exists", p)
}
