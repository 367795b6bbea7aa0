package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"kakeibo/internal/sheets/google"
)

var (
	flagRedirectPort string
	flagTokenOut     string
)

// authCmd runs the installed-app OAuth flow once and stores the refresh
// token for the Google Sheets backend.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to the spreadsheet and save an OAuth token",
	Long: "Opens a local callback on localhost and prints the consent URL.\n" +
		"The OAuth client must list http://localhost:<port>/callback as a redirect URI.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		var clientJSON []byte
		switch {
		case cfg.GoogleOAuthClientJSON != "":
			clientJSON = []byte(cfg.GoogleOAuthClientJSON)
		case cfg.GoogleOAuthClientFile != "":
			if clientJSON, err = os.ReadFile(cfg.GoogleOAuthClientFile); err != nil {
				return fmt.Errorf("read client file: %w", err)
			}
		default:
			return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		oc, err := google.OAuthConfig(clientJSON)
		if err != nil {
			return err
		}
		oc.RedirectURL = "http://localhost:" + flagRedirectPort + "/callback"

		out := flagTokenOut
		if out == "" {
			out = cfg.GoogleOAuthTokenFile
		}
		if out == "" {
			out = "token.json"
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		state := uuid.NewString()
		code, err := awaitCode(ctx, oc, state, func(url string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", url)
		})
		if err != nil {
			return err
		}
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := writeToken(out, tok); err != nil {
			return err
		}
		logger.Info("OAuth token saved", "path", out)
		fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", out)
		return nil
	},
}

// awaitCode serves the redirect endpoint until one callback carrying the
// expected state arrives or ctx ends.
func awaitCode(ctx context.Context, oc *oauth2.Config, state string, show func(url string)) (string, error) {
	ln, err := net.Listen("tcp", "localhost:"+flagRedirectPort)
	if err != nil {
		return "", fmt.Errorf("listen for callback: %w", err)
	}
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
			return
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	show(oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}

func writeToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

func init() {
	authCmd.Flags().StringVar(&flagRedirectPort, "port", "8085", "Local port for the OAuth redirect")
	authCmd.Flags().StringVar(&flagTokenOut, "out", "", "Token file (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	rootCmd.AddCommand(authCmd)
}
