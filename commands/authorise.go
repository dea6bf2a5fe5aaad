package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/leo-automation/leo-ring/auth"
	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/log"
)

var AuthoriseCmd = Authorise{
	provider: auth.MicrosoftGraph,
	listen:   "localhost:8000",
	tokens:   "",
}

// Authorise runs the OAuth2 authorisation code flow for a storage provider and prints
// the refresh token for the configuration.
type Authorise struct {
	provider string
	listen   string
	tokens   string
}

func (cmd *Authorise) Command(options *Options) *cobra.Command {
	c := &cobra.Command{
		Use:   "authorise",
		Short: "Authorises access to OneDrive or Google Drive/Sheets",
		Long: `Opens the provider's consent page in a browser and waits for the redirect on a local
HTTP listener. The resulting refresh token is printed for ONEDRIVE_REFRESH_TOKEN or
GOOGLE_REFRESH_TOKEN and optionally saved to a file.

The redirect URL (e.g. http://localhost:8000/) must be registered with the provider.`,
		Example: `  leo-ring authorise --provider microsoft
  leo-ring authorise --provider google --listen localhost:8001 --tokens ~/.leo-ring/google.json`,
		Aliases: []string{"authorize"},
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.execute(c.Context(), options)
		},
	}

	c.Flags().StringVar(&cmd.provider, "provider", cmd.provider, "OAuth2 provider: microsoft or google")
	c.Flags().StringVar(&cmd.listen, "listen", cmd.listen, "Local address for the OAuth2 redirect")
	c.Flags().StringVar(&cmd.tokens, "tokens", cmd.tokens, "File to save the token response to")

	return c
}

func (cmd *Authorise) execute(ctx context.Context, options *Options) error {
	if err := config.LoadEnv(options.EnvFile); err != nil {
		return err
	}

	redirect := fmt.Sprintf("http://%v/", cmd.listen)

	var oc *oauth2.Config
	switch strings.ToLower(strings.TrimSpace(cmd.provider)) {
	case auth.MicrosoftGraph:
		scope := os.Getenv("ONEDRIVE_SCOPE")
		if scope == "" {
			scope = auth.GraphFilesScope + " offline_access"
		}
		oc = auth.MicrosoftConfig(os.Getenv("MS_GRAPH_CLIENT_ID"), os.Getenv("MS_GRAPH_CLIENT_SECRET"), scope, redirect)

	case auth.Google:
		oc = auth.GoogleConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), redirect, auth.DriveScope, auth.SheetsScope)

	default:
		return fmt.Errorf("invalid provider '%v' - expected 'microsoft' or 'google'", cmd.provider)
	}

	if oc.ClientID == "" || oc.ClientSecret == "" {
		return fmt.Errorf("client ID and secret for '%v' are not configured", cmd.provider)
	}

	token, err := authenticate(ctx, oc, cmd.listen)
	if err != nil {
		return fmt.Errorf("authorisation error (%w)", err)
	} else if token == nil {
		return nil
	}

	b, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", b)
	fmt.Println()
	fmt.Printf("   refresh token: %v\n", token.RefreshToken)

	if cmd.tokens != "" {
		return saveToken(cmd.tokens, token)
	}

	return nil
}

// authenticate serves the OAuth2 redirect on a local listener and exchanges the code
// for a token. Returns nil if cancelled with CTRL-C.
func authenticate(ctx context.Context, oc *oauth2.Config, listen string) (*oauth2.Token, error) {
	state := uuid.NewString()
	authorised := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, rq *http.Request) {
		code := rq.FormValue("code")

		if rq.FormValue("state") != state || code == "" {
			if e := rq.FormValue("error_description"); e != "" {
				log.Warnf("authorisation declined (%v)", e)
			}

			http.Error(w, "Invalid authorisation response", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Authorised - you can close this window\n"))

		select {
		case authorised <- code:
		default:
		}
	})

	socket, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler: mux,
	}

	go func() {
		if err := srv.Serve(socket); err != nil && err != http.ErrServerClosed {
			log.Errorf("%v", err)
		}
	}()

	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Warnf("%v", err)
		}
	}()

	// ... CTRL-C handler
	interrupt := make(chan os.Signal, 1)

	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	// ... open OAuth2 URL in browser
	url := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))

	if _, err := exec.Command(OPEN, url).CombinedOutput(); err != nil {
		fmt.Printf("Could not open the authorisation page in your browser - please open the following URL manually:\n\n   %v\n\n", url)
	}

	// ... wait for authorisation
	select {
	case <-interrupt:
		fmt.Printf("\n.. cancelled\n\n")
		return nil, nil

	case <-ctx.Done():
		return nil, ctx.Err()

	case code := <-authorised:
		return oc.Exchange(ctx, code)
	}
}

// saveToken writes the token to a file readable only by the owner.
func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to save token (%w)", err)
	}

	defer f.Close()

	fmt.Printf("   ... saving token to %s\n", path)

	return json.NewEncoder(f).Encode(token)
}
