package powerbi

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pinpt/go-common/v10/httpdefaults"
	pstrings "github.com/pinpt/go-common/v10/strings"
	"github.com/pinpt/httpclient"
)

// DefaultBaseURL is the Power BI admin api root.
const DefaultBaseURL = "https://api.powerbi.com/v1.0/myorg"

// TokenFunc returns a bearer token. When force is set the implementation must
// mint a fresh token instead of returning a cached one.
type TokenFunc func(force bool) (string, error)

// Client is the http collaborator of the extraction cycle. Retry with backoff
// lives here, the cycle above never retries.
type Client struct {
	logger  hclog.Logger
	client  *httpclient.HTTPClient
	baseURL string
	token   TokenFunc
}

// singlePage disables transport level pagination, page advancement is decided
// by the stream paginators.
type singlePage struct{}

var _ httpclient.Paginator = (*singlePage)(nil)

func (singlePage) HasMore(page int, req *http.Request, resp *http.Response) (bool, *http.Request) {
	return false, nil
}

func NewClient(logger hclog.Logger, baseURL string, token TokenFunc) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := &http.Client{
		Transport: httpdefaults.DefaultTransport(),
		Timeout:   10 * time.Minute,
	}
	conf := &httpclient.Config{
		Paginator: singlePage{},
		Retryable: httpclient.NewBackoffRetry(10*time.Millisecond, 100*time.Millisecond, 60*time.Second, 2.0),
	}
	return &Client{
		logger:  logger.Named("api"),
		client:  httpclient.NewHTTPClient(context.Background(), conf, hc),
		baseURL: baseURL,
		token:   token,
	}
}

// Get issues one request and returns the body together with the URL that went
// on the wire. On 401 the token is refreshed once and the request repeated.
func (s *Client) Get(ctx context.Context, path string, params url.Values) (*Page, error) {
	return s.get(ctx, path, params, false)
}

func (s *Client) get(ctx context.Context, path string, params url.Values, retried bool) (*Page, error) {
	requesturl, err := url.Parse(pstrings.JoinURL(s.baseURL, path))
	if err != nil {
		return nil, err
	}
	if len(params) != 0 {
		requesturl.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, requesturl.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request. err %v", err)
	}
	req = req.WithContext(ctx)
	accessToken, err := s.token(false)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling powerbi api. err %v", err)
	}
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading response body. err %v", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return &Page{StatusCode: resp.StatusCode, Body: body, RequestURL: req.URL}, nil
	case resp.StatusCode == http.StatusUnauthorized && !retried:
		s.logger.Info("got 401, refreshing access token and retrying")
		if _, err := s.token(true); err != nil {
			return nil, err
		}
		return s.get(ctx, path, params, true)
	default:
		return nil, fmt.Errorf("powerbi api request failed. url: %v response_code: %v response: %v", requesturl, resp.StatusCode, string(body))
	}
}
