package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials selects how the client authenticates. A service account wins
// over an OAuth client and token when both are set.
type Credentials struct {
	ServiceAccountJSON []byte
	OAuthClientJSON    []byte
	OAuthTokenJSON     []byte
}

func (c Credentials) Empty() bool {
	return len(c.ServiceAccountJSON) == 0 && (len(c.OAuthClientJSON) == 0 || len(c.OAuthTokenJSON) == 0)
}

// NewService builds a Sheets service from creds. Extra options are applied
// last; with empty creds they must carry their own authentication.
func NewService(ctx context.Context, creds Credentials, extra ...goption.ClientOption) (*gsheet.Service, error) {
	var opts []goption.ClientOption
	switch {
	case len(creds.ServiceAccountJSON) > 0:
		opts = append(opts,
			goption.WithCredentialsJSON(creds.ServiceAccountJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	case len(creds.OAuthClientJSON) > 0 && len(creds.OAuthTokenJSON) > 0:
		client, err := oauthClient(ctx, creds)
		if err != nil {
			return nil, err
		}
		opts = append(opts, goption.WithHTTPClient(client))
	case len(extra) == 0:
		return nil, errors.New("missing Google credentials (service account, or OAuth client and token)")
	}
	svc, err := gsheet.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// OAuthConfig parses an OAuth client secret for the spreadsheets scope.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func oauthClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	cfg, err := OAuthConfig(creds.OAuthClientJSON)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(creds.OAuthTokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
