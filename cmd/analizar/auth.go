package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "analizador/internal/sheets/google"
)

// authCommand runs the installed-app OAuth flow once and stores the token the
// dashboard later reads through GOOGLE_OAUTH_TOKEN_FILE.
func authCommand() *cobra.Command {
	var (
		clientFile string
		tokenFile  string
		port       int
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to a Google spreadsheet and save the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := gsheet.ReadCredential(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"), clientFile)
			if errors.Is(err, gsheet.ErrNoCredential) {
				return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or pass --client")
			}
			if err != nil {
				return err
			}
			cfg, err := gsheet.OAuthConfig(client)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
			if err != nil {
				return fmt.Errorf("listen for the OAuth callback: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			tok, err := authorize(ctx, cfg, ln, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := gsheet.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token guardado en %s\n", tokenFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientFile, "client", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON file")
	cmd.Flags().StringVarP(&tokenFile, "output", "o", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "Where to save the token")
	cmd.Flags().IntVar(&port, "port", 8085, "Local port for the redirect URI")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the browser")
	return cmd
}

type callbackResult struct {
	code string
	err  error
}

// authorize serves the redirect on ln, prints the consent URL and exchanges
// the returned code. The redirect URI must be registered on the OAuth client.
func authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, out io.Writer) (*oauth2.Token, error) {
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", ln.Addr().(*net.TCPAddr).Port)
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "Abra esta URL para autorizar el acceso:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("authorization timed out")
		}
		return nil, errors.New("authorization interrupted")
	}
}

// callbackHandler reports the first callback it sees on results.
func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
			http.Error(w, "Autorización rechazada: "+q.Get("error"), http.StatusBadRequest)
		case q.Get("state") != state:
			http.Error(w, "Estado no válido", http.StatusBadRequest)
			return
		case q.Get("code") == "":
			http.Error(w, "Falta el código de autorización", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
			fmt.Fprintln(w, "Puede cerrar esta ventana y volver a la terminal.")
		}
		select {
		case results <- res:
		default:
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
