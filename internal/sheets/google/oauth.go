package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoCredential is returned by ReadCredential when neither value is set.
var ErrNoCredential = errors.New("credential not set")

// ReadCredential returns inline when set, otherwise the contents of file.
func ReadCredential(inline, file string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	file = strings.TrimSpace(file)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, ErrNoCredential
	}
}

// OAuthConfig parses an OAuth client definition (the JSON downloaded from the
// Cloud console) into a config limited to reading spreadsheets.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	return cfg, nil
}

// ParseToken decodes a token saved by SaveToken.
func ParseToken(b []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token: no access or refresh token")
	}
	return &tok, nil
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
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

// userTokenSource builds a refreshing token source from user credentials.
// It returns (nil, nil) when no OAuth client is configured.
func userTokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, error) {
	client, err := ReadCredential(opts.OAuthClientJSON, opts.OAuthClientFile)
	if errors.Is(err, ErrNoCredential) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := OAuthConfig(client)
	if err != nil {
		return nil, err
	}
	raw, err := ReadCredential(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if errors.Is(err, ErrNoCredential) {
		return nil, errors.New("oauth client set without a token (run `analizar auth` first)")
	}
	if err != nil {
		return nil, err
	}
	tok, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}
