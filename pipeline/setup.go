package pipeline

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/leo-automation/leo-ring/auth"
	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/credential"
	"github.com/leo-automation/leo-ring/index"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/ring"
	"github.com/leo-automation/leo-ring/storage"
	"github.com/leo-automation/leo-ring/storage/gdrive"
	"github.com/leo-automation/leo-ring/storage/onedrive"
)

// HardwareID is the stable device identifier presented to the doorbell vendor.
func HardwareID(agent string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("leo-ring:"+agent)).String()
}

// Setup validates the configuration, authenticates with every provider and selects
// the doorbell. Nothing is fetched from the network if the configuration is invalid.
func Setup(ctx context.Context, cfg *config.Config, metrics *Metrics) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cred, err := credential.Decode(cfg.RingToken)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	hardwareID := HardwareID(cfg.RingAgent)

	// ... doorbell
	ringSession := auth.NewSession(auth.Ring, auth.RingConfig(""), cred.Token(), auth.WithHeaders(client, auth.RingHeaders(cfg.RingAgent, hardwareID)))
	if err := ringSession.Refresh(ctx); err != nil {
		return nil, err
	}

	camera := ring.NewClient(ringSession, ring.ClientConfig{
		UserAgent:  cfg.RingAgent,
		HardwareID: hardwareID,
		Timeout:    cfg.HTTPTimeout,
	})

	if err := camera.CreateSession(ctx, hardwareID); err != nil {
		return nil, err
	}

	device, err := camera.Doorbell(ctx)
	if err != nil {
		return nil, err
	}

	log.Infof("using doorbell %v (%v)", device.ID, device.Description)

	// ... storage and index mirror
	services := NewServices(cfg, client)

	store, err := services.Store(ctx)
	if err != nil {
		return nil, err
	}

	mirror, err := services.Mirror(ctx)
	if err != nil {
		return nil, err
	}

	return New(Options{
		Camera:  camera,
		Device:  device,
		Store:   store,
		Mirror:  mirror,
		Prefix:  cfg.Prefix,
		History: cfg.History(),
		Retry:   DefaultRetryPolicy(cfg.RetryAttempts, cfg.RetryDelay),
		Metrics: metrics,
	}), nil
}

// Services authenticates the storage providers on demand. The Google session is
// shared by the Drive backend and the Sheets mirror.
type Services struct {
	cfg    *config.Config
	client *http.Client
	google *auth.Session
}

func NewServices(cfg *config.Config, client *http.Client) *Services {
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Services{
		cfg:    cfg,
		client: client,
	}
}

// Store returns the configured storage backend.
func (s *Services) Store(ctx context.Context) (storage.Store, error) {
	cfg := s.cfg

	switch cfg.StorageBackend {
	case config.BackendGDrive:
		session, err := s.googleSession(ctx)
		if err != nil {
			return nil, err
		}

		return gdrive.New(ctx, session.Client(ctx), 0)

	default:
		oc := auth.MicrosoftConfig(cfg.GraphClientID, cfg.GraphClientSecret, cfg.OneDriveScope, "")
		session := auth.NewSession(auth.MicrosoftGraph, oc, &oauth2.Token{RefreshToken: cfg.OneDriveRefreshToken}, s.client)
		if err := session.Refresh(ctx); err != nil {
			return nil, err
		}

		return onedrive.New(session, onedrive.Config{Timeout: cfg.HTTPTimeout}), nil
	}
}

// Mirror returns the Google Sheets index mirror, or nil if none is configured.
func (s *Services) Mirror(ctx context.Context) (index.Mirror, error) {
	if s.cfg.GoogleSheetURL == "" {
		return nil, nil
	}

	session, err := s.googleSession(ctx)
	if err != nil {
		return nil, err
	}

	return index.NewSheetsMirror(ctx, session.Client(ctx), s.cfg.GoogleSheetURL, s.cfg.GoogleSheetRange)
}

func (s *Services) googleSession(ctx context.Context) (*auth.Session, error) {
	if s.google == nil {
		oc := auth.GoogleConfig(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, "", auth.DriveScope, auth.SheetsScope)
		session := auth.NewSession(auth.Google, oc, &oauth2.Token{RefreshToken: s.cfg.GoogleRefreshToken}, s.client)
		if err := session.Refresh(ctx); err != nil {
			return nil, err
		}

		s.google = session
	}

	return s.google, nil
}
