package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leo-automation/leo-ring/auth"
	"github.com/leo-automation/leo-ring/config"
	"github.com/leo-automation/leo-ring/credential"
	"github.com/leo-automation/leo-ring/log"
)

var RingLoginCmd = RingLogin{
	agent: "",
}

// RingLogin creates the RING_TOKEN credential from the account username and password.
type RingLogin struct {
	username string
	password string
	code     string
	agent    string
}

func (cmd *RingLogin) Command(options *Options) *cobra.Command {
	c := &cobra.Command{
		Use:   "ring-login",
		Short: "Logs in to the doorbell account and prints the RING_TOKEN credential",
		Long: `Exchanges the doorbell account username and password (and the verification code sent
by the vendor if two factor authentication is enabled) for a token, and prints the token
and its base64 encoding for the RING_TOKEN setting.

Values not supplied as options are prompted for.`,
		Example: `  leo-ring ring-login --username someone@example.com
  leo-ring ring-login --username someone@example.com --password qwerty --code 123456`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.execute(c.Context(), options)
		},
	}

	c.Flags().StringVar(&cmd.username, "username", cmd.username, "Account username (email)")
	c.Flags().StringVar(&cmd.password, "password", cmd.password, "Account password")
	c.Flags().StringVar(&cmd.code, "code", cmd.code, "Verification code")
	c.Flags().StringVar(&cmd.agent, "agent", cmd.agent, "User agent (default RING_AGENT)")

	return c
}

func (cmd *RingLogin) execute(ctx context.Context, options *Options) error {
	if err := config.LoadEnv(options.EnvFile); err != nil {
		return err
	}

	agent := cmd.agent
	if agent == "" {
		agent = os.Getenv("RING_AGENT")
	}
	if agent == "" {
		agent = "N/A"
	}

	stdin := bufio.NewReader(os.Stdin)
	username := prompt(stdin, "username", cmd.username)
	password := prompt(stdin, "password", cmd.password)

	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	client := &http.Client{Timeout: 60 * time.Second}
	oc := auth.RingConfig("")

	token, err := auth.RingLogin(ctx, client, oc, agent, username, password, cmd.code)
	if errors.Is(err, auth.ErrVerificationRequired) && cmd.code == "" {
		log.Debugf("%v", err)
		fmt.Println("   ... a verification code is required")

		if code := prompt(stdin, "verification code", ""); code != "" {
			token, err = auth.RingLogin(ctx, client, oc, agent, username, password, code)
		}
	}

	if err != nil {
		return err
	}

	cred := credential.FromToken(token)

	b, err := json.MarshalIndent(cred, "", "    ")
	if err != nil {
		return err
	}

	encoded, err := credential.Encode(cred)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n\n", b)
	fmt.Printf("RING_TOKEN=%v\n", encoded)

	return nil
}

func prompt(r *bufio.Reader, label, value string) string {
	if value != "" {
		return value
	}

	fmt.Printf("%v: ", label)

	line, _ := r.ReadString('\n')

	return strings.TrimSpace(line)
}
