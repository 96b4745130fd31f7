package powerbi

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pinpt/go-common/v10/hash"
	"golang.org/x/oauth2"
)

const (
	authURLBase = "https://login.microsoftonline.com"
	// resourceURI scopes the issued token to the Power BI service
	resourceURI = "https://analysis.windows.net/powerbi/api"
)

// Credentials for the Azure AD resource owner password grant the admin api
// uses for unattended access.
type Credentials struct {
	TenantID string
	ClientID string
	Username string
	Password string
}

// Fingerprint identifies a credential set without exposing the password.
func (c Credentials) Fingerprint() string {
	return hash.Values(c.TenantID, c.ClientID, c.Username)
}

func (c Credentials) oauthConfig() *oauth2.Config {
	// the v1 azure ad endpoint takes the target resource as a query parameter
	// on the token url
	tokenURL := authURLBase + "/" + c.TenantID + "/oauth2/token?resource=" + url.QueryEscape(resourceURI)
	return &oauth2.Config{
		ClientID: c.ClientID,
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL},
	}
}

// TokenManager hands out bearer tokens, keeping one self-refreshing token
// source per credential set for the life of the process. Sources are created
// on first use and never evicted, so each credential set fetches a token at
// most once per run plus refreshes.
type TokenManager struct {
	logger  hclog.Logger
	mu      sync.Mutex
	sources map[string]oauth2.TokenSource

	// mint is swapped in tests
	mint func(ctx context.Context, creds Credentials) (oauth2.TokenSource, error)
}

func NewTokenManager(logger hclog.Logger) *TokenManager {
	s := &TokenManager{}
	s.logger = logger.Named("auth")
	s.sources = map[string]oauth2.TokenSource{}
	s.mint = mintTokenSource
	return s
}

func mintTokenSource(ctx context.Context, creds Credentials) (oauth2.TokenSource, error) {
	conf := creds.oauthConfig()
	tok, err := conf.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("error getting access token. err %v", err)
	}
	return conf.TokenSource(ctx, tok), nil
}

// Token returns a bearer token for creds. force drops the cached source and
// mints a fresh one.
func (s *TokenManager) Token(ctx context.Context, creds Credentials, force bool) (string, error) {
	key := creds.Fingerprint()
	s.mu.Lock()
	source, ok := s.sources[key]
	if !ok || force {
		var err error
		source, err = s.mint(ctx, creds)
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		s.sources[key] = source
		s.logger.Info("acquired access token", "tenant", creds.TenantID, "username", creds.Username)
	}
	s.mu.Unlock()
	tok, err := source.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// TokenFunc binds creds into the TokenFunc the api client expects.
func (s *TokenManager) TokenFunc(ctx context.Context, creds Credentials) TokenFunc {
	return func(force bool) (string, error) {
		return s.Token(ctx, creds, force)
	}
}
