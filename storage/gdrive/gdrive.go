// Package gdrive implements the file store on Google Drive. Drive has no path
// addressing so paths are resolved one folder at a time from 'My Drive', falling back
// to 'Shared with me' for the first segment.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	errs "github.com/leo-automation/leo-ring/errors"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/storage"
)

const (
	FolderMimeType   = "application/vnd.google-apps.folder"
	DefaultChunkSize = 8 * 1024 * 1024
)

const fields = "id,name,size,webViewLink,driveId,mimeType"

type GDrive struct {
	svc       *drive.Service
	chunkSize int
}

var _ storage.Store = (*GDrive)(nil)

// New creates a Drive store using an already authorised HTTP client.
func New(ctx context.Context, client *http.Client, chunkSize int, opts ...option.ClientOption) (*GDrive, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Drive client (%w)", err)
	}

	return &GDrive{
		svc:       svc,
		chunkSize: chunkSize,
	}, nil
}

func (d *GDrive) Resolve(ctx context.Context, p string) (storage.Location, error) {
	f, err := d.walk(ctx, p, false)
	if err != nil {
		return storage.Location{}, err
	}

	return storage.Location{DriveID: f.DriveId, ItemID: f.Id}, nil
}

func (d *GDrive) Info(ctx context.Context, p string) (*storage.Item, error) {
	f, err := d.walk(ctx, p, false)
	if err != nil {
		return nil, err
	}

	return item(f, parent(p)), nil
}

func (d *GDrive) Download(ctx context.Context, p string, w io.Writer) error {
	f, err := d.walk(ctx, p, false)
	if err != nil {
		return err
	}

	response, err := d.svc.Files.Get(f.Id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return convert(err, "download "+p)
	}

	defer response.Body.Close()

	if _, err := io.Copy(w, response.Body); err != nil {
		return errs.Transport(err, "download "+p)
	}

	return nil
}

// Upload creates any missing folders below the first path segment and then uploads
// the content as a resumable upload.
func (d *GDrive) Upload(ctx context.Context, src io.Reader, size int64, dest string, policy storage.ConflictPolicy) (*storage.Item, error) {
	dir, name := path.Split(path.Clean("/" + dest))

	folder, err := d.walk(ctx, dir, true)
	if err != nil {
		return nil, err
	}

	existing, err := d.lookup(ctx, folder.Id, name)
	if err != nil {
		return nil, err
	}

	op := "upload " + dest
	chunking := googleapi.ChunkSize(d.chunkSize)

	if existing != nil {
		switch policy {
		case storage.Skip:
			log.Infof("gdrive: %v already exists", dest)
			return item(existing, parent(dest)), nil

		case storage.Replace:
			f, err := d.svc.Files.Update(existing.Id, &drive.File{}).
				Media(src, chunking).
				SupportsAllDrives(true).
				Fields(fields).
				Context(ctx).
				Do()
			if err != nil {
				return nil, convert(err, op)
			}

			log.Debugf("gdrive: replaced %v (%v bytes)", dest, size)
			return item(f, parent(dest)), nil

		default:
			return nil, storage.AlreadyExists(dest)
		}
	}

	f, err := d.svc.Files.Create(&drive.File{Name: name, Parents: []string{folder.Id}}).
		Media(src, chunking).
		SupportsAllDrives(true).
		Fields(fields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, convert(err, op)
	}

	log.Debugf("gdrive: uploaded %v (%v bytes)", dest, size)

	return item(f, parent(dest)), nil
}

// walk resolves a path to a file, optionally creating missing folders. The first
// segment must exist either in 'My Drive' or in 'Shared with me'.
func (d *GDrive) walk(ctx context.Context, p string, create bool) (*drive.File, error) {
	base, rest := storage.Split(p)
	if base == "" {
		return &drive.File{Id: "root", Name: "", MimeType: FolderMimeType}, nil
	}

	f, err := d.root(ctx, base)
	if err != nil {
		return nil, err
	}

	if rest == "" {
		return f, nil
	}

	for _, segment := range strings.Split(rest, "/") {
		child, err := d.lookup(ctx, f.Id, segment)
		if err != nil {
			return nil, err
		}

		if child == nil && !create {
			return nil, storage.NotFound(p)
		}

		if child == nil {
			if child, err = d.mkdir(ctx, f.Id, segment); err != nil {
				return nil, err
			}
		}

		f = child
	}

	return f, nil
}

func (d *GDrive) root(ctx context.Context, name string) (*drive.File, error) {
	f, err := d.lookup(ctx, "root", name)
	if err != nil {
		return nil, err
	} else if f != nil {
		return f, nil
	}

	q := fmt.Sprintf("name = '%v' and sharedWithMe = true and trashed = false", quote(name))
	if f, err = d.find(ctx, q); err != nil {
		return nil, err
	} else if f != nil {
		log.Debugf("gdrive: %v is shared from drive %v", name, f.DriveId)
		return f, nil
	}

	return nil, storage.NotFound("/" + name)
}

func (d *GDrive) lookup(ctx context.Context, parent, name string) (*drive.File, error) {
	q := fmt.Sprintf("name = '%v' and '%v' in parents and trashed = false", quote(name), quote(parent))

	return d.find(ctx, q)
}

func (d *GDrive) find(ctx context.Context, q string) (*drive.File, error) {
	list, err := d.svc.Files.List().
		Q(q).
		Fields(googleapi.Field("files(" + fields + ")")).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(10).
		Context(ctx).
		Do()

	if err != nil {
		return nil, convert(err, "list files")
	}

	if len(list.Files) == 0 {
		return nil, nil
	}

	return list.Files[0], nil
}

func (d *GDrive) mkdir(ctx context.Context, parent, name string) (*drive.File, error) {
	folder := drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parent},
	}

	f, err := d.svc.Files.Create(&folder).SupportsAllDrives(true).Fields(fields).Context(ctx).Do()
	if err != nil {
		return nil, convert(err, "create folder "+name)
	}

	log.Infof("gdrive: created folder %v", name)

	return f, nil
}

func item(f *drive.File, parent string) *storage.Item {
	return &storage.Item{
		ID:     f.Id,
		Name:   f.Name,
		Parent: parent,
		WebURL: f.WebViewLink,
		Size:   f.Size,
	}
}

func parent(p string) string {
	return path.Dir(path.Clean("/" + p))
}

// quote escapes a value for a Drive query string literal.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func convert(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return errs.Wrap(errs.KindAuthentication, err, "%v", op)
		case http.StatusNotFound:
			return errs.Wrap(errs.KindNotFound, err, "%v", op)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return errs.Wrap(errs.KindTransientTimeout, err, "%v", op)
		}

		return fmt.Errorf("%v (%w)", op, err)
	}

	return errs.Transport(err, op)
}
