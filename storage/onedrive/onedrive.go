// Package onedrive implements the file store on the Microsoft Graph drive API, including
// folders shared from another account and resumable chunked uploads.
package onedrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/leo-automation/leo-ring/auth"
	errs "github.com/leo-automation/leo-ring/errors"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/storage"
)

const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// upload chunks must be a multiple of 320 KiB
	ChunkUnit        = 327680
	DefaultChunkSize = 10 * ChunkUnit
)

type OneDrive struct {
	api       *resty.Client
	raw       *resty.Client
	chunkSize int
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	ChunkSize int
}

type driveItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Size            int64           `json:"size"`
	WebURL          string          `json:"webUrl"`
	ParentReference parentReference `json:"parentReference"`
	RemoteItem      *driveItem      `json:"remoteItem,omitempty"`
}

type parentReference struct {
	DriveID string `json:"driveId"`
	ID      string `json:"id"`
	Path    string `json:"path"`
}

type uploadSession struct {
	UploadURL          string   `json:"uploadUrl"`
	ExpirationDateTime string   `json:"expirationDateTime"`
	NextExpectedRanges []string `json:"nextExpectedRanges"`
}

var _ storage.Store = (*OneDrive)(nil)

func New(session *auth.Session, cfg Config) *OneDrive {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	api := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	api.OnBeforeRequest(func(_ *resty.Client, rq *resty.Request) error {
		if token := session.Token(); token != nil {
			rq.SetAuthToken(token.AccessToken)
		}
		return nil
	})

	// upload session URLs and content redirects are pre-authorised
	raw := resty.New().
		SetTimeout(cfg.Timeout)

	return &OneDrive{
		api:       api,
		raw:       raw,
		chunkSize: cfg.ChunkSize,
	}
}

// URL returns the API address of a resolved location.
func URL(l storage.Location) string {
	if l.DriveID != "" {
		u := fmt.Sprintf("/drives/%v/items/%v", url.PathEscape(l.DriveID), url.PathEscape(l.ItemID))
		if l.Rest != "" {
			u += ":/" + escape(l.Rest)
		}
		return u
	}

	if l.Rest == "" {
		return "/me/drive/root"
	}

	return "/me/drive/root:/" + escape(l.Rest)
}

// action appends an item action (content, createUploadSession) to a location URL.
func action(l storage.Location, name string) string {
	if l.Rest != "" {
		return URL(l) + ":/" + name
	}

	return URL(l) + "/" + name
}

// Resolve maps a path to an API location. If the first path segment is a folder shared
// from another drive the location is rebased onto the shared folder, since the shared
// folder's children are not addressable by path from this drive's root.
func (d *OneDrive) Resolve(ctx context.Context, p string) (storage.Location, error) {
	base, rest := storage.Split(p)
	if base == "" {
		return storage.Location{}, nil
	}

	var info driveItem
	if err := d.get(ctx, "/me/drive/root:/"+escape(base), &info); err != nil {
		return storage.Location{}, err
	}

	if remote := info.RemoteItem; remote != nil {
		log.Debugf("onedrive: %v is shared from drive %v", base, remote.ParentReference.DriveID)

		return storage.Location{
			DriveID: remote.ParentReference.DriveID,
			ItemID:  remote.ID,
			Rest:    rest,
		}, nil
	}

	return storage.Location{Rest: strings.Trim(base+"/"+rest, "/")}, nil
}

func (d *OneDrive) Info(ctx context.Context, p string) (*storage.Item, error) {
	loc, err := d.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	var info driveItem
	if err := d.get(ctx, URL(loc), &info); err != nil {
		return nil, err
	}

	return info.item(), nil
}

// Download copies the item content to w. The content endpoint answers with a redirect
// to a pre-authenticated URL which is fetched without the bearer token.
func (d *OneDrive) Download(ctx context.Context, p string, w io.Writer) error {
	loc, err := d.Resolve(ctx, p)
	if err != nil {
		return err
	}

	op := "GET " + p
	rs, err := d.api.R().SetContext(ctx).SetDoNotParseResponse(true).Get(action(loc, "content"))
	if err != nil {
		return errs.Transport(err, op)
	}

	body := rs.RawBody()
	defer body.Close()

	switch rs.StatusCode() {
	case http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		location := rs.Header().Get("Location")
		if location == "" {
			return fmt.Errorf("%v: redirect without location", op)
		}

		return d.fetch(ctx, location, w)

	case http.StatusOK:
		if _, err := io.Copy(w, body); err != nil {
			return errs.Transport(err, op)
		}
		return nil

	case http.StatusNotFound:
		return storage.NotFound(p)

	default:
		if err := check(rs, op); err != nil {
			return err
		}

		return fmt.Errorf("%v: unexpected status %v", op, rs.Status())
	}
}

// Upload creates an upload session and sends the content in chunks. The 'skip' policy
// is implemented as 'fail' followed by a metadata lookup of the existing item, so that
// nothing is transferred for an existing destination.
func (d *OneDrive) Upload(ctx context.Context, src io.Reader, size int64, dest string, policy storage.ConflictPolicy) (*storage.Item, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%v: cannot upload empty file", dest)
	}

	loc, err := d.Resolve(ctx, dest)
	if err != nil {
		return nil, err
	}

	behaviour := policy
	if behaviour == storage.Skip {
		behaviour = storage.Fail
	}

	body := map[string]any{
		"item": map[string]any{
			"@microsoft.graph.conflictBehavior": string(behaviour),
			"name":                              path.Base(dest),
		},
	}

	op := "upload " + dest
	session := uploadSession{}
	rs, err := d.api.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&session).
		Post(action(loc, "createUploadSession"))

	if err != nil {
		return nil, errs.Transport(err, op)
	}

	if rs.StatusCode() == http.StatusConflict {
		if policy == storage.Skip {
			log.Infof("onedrive: %v already exists", dest)
			return d.Info(ctx, dest)
		}

		return nil, storage.AlreadyExists(dest)
	}

	if err := check(rs, op); err != nil {
		return nil, err
	}

	if session.UploadURL == "" {
		return nil, fmt.Errorf("%v: no upload URL in session", op)
	}

	return d.send(ctx, session.UploadURL, src, size, dest)
}

func (d *OneDrive) send(ctx context.Context, uploadURL string, src io.Reader, size int64, dest string) (*storage.Item, error) {
	op := "upload " + dest
	chunk := make([]byte, d.chunkSize)
	offset := int64(0)

	for offset < size {
		n, err := io.ReadFull(src, chunk)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, err
		}

		if n == 0 {
			return nil, fmt.Errorf("%v: source ended at %v of %v bytes", op, offset, size)
		}

		var info driveItem
		rs, err := d.raw.R().
			SetContext(ctx).
			SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(n)-1, size)).
			SetBody(chunk[:n]).
			SetResult(&info).
			Put(uploadURL)

		if err != nil {
			return nil, errs.Transport(err, op)
		}

		switch rs.StatusCode() {
		case http.StatusOK, http.StatusCreated:
			log.Debugf("onedrive: uploaded %v (%v bytes)", dest, offset+int64(n))
			return info.item(), nil

		case http.StatusAccepted:
			offset += int64(n)

		default:
			return nil, fmt.Errorf("%v: chunk at offset %v failed (%v)", op, offset, rs.Status())
		}
	}

	return nil, fmt.Errorf("%v: upload session did not complete after %v bytes", op, offset)
}

func (d *OneDrive) fetch(ctx context.Context, location string, w io.Writer) error {
	rs, err := d.raw.R().SetContext(ctx).SetDoNotParseResponse(true).Get(location)
	if err != nil {
		return errs.Transport(err, "download")
	}

	body := rs.RawBody()
	defer body.Close()

	if rs.IsError() {
		return fmt.Errorf("download failed (%v)", rs.Status())
	}

	if _, err := io.Copy(w, body); err != nil {
		return errs.Transport(err, "download")
	}

	return nil
}

func (d *OneDrive) get(ctx context.Context, path string, result any) error {
	rs, err := d.api.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)

	if err != nil {
		return errs.Transport(err, "GET "+path)
	}

	return check(rs, "GET "+path)
}

func (i driveItem) item() *storage.Item {
	return &storage.Item{
		ID:     i.ID,
		Name:   i.Name,
		Parent: i.ParentReference.Path,
		WebURL: i.WebURL,
		Size:   i.Size,
	}
}

func check(rs *resty.Response, op string) error {
	switch {
	case rs.StatusCode() == http.StatusUnauthorized:
		return errs.New(errs.KindAuthentication, "%v: %v", op, rs.Status())

	case rs.StatusCode() == http.StatusNotFound:
		return errs.New(errs.KindNotFound, "%v: %v", op, rs.Status())

	case rs.StatusCode() == http.StatusGatewayTimeout || rs.StatusCode() == http.StatusRequestTimeout:
		return errs.New(errs.KindTransientTimeout, "%v: %v", op, rs.Status())

	case rs.IsError():
		return fmt.Errorf("%v: %v", op, rs.Status())
	}

	return nil
}

func escape(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}
