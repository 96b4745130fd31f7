package powerbi

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// PageToken identifies the next page to request within one stream extraction.
// A nil token always means the first page. The concrete type is owned by the
// paginator that produced it and is opaque to everything else.
type PageToken interface{}

// Page is one response page together with the URL of the request that was
// actually sent. RequestURL is needed by the activity paginator, which anchors
// its date window on the startDateTime parameter it read back from the wire.
type Page struct {
	StatusCode int
	Body       []byte
	RequestURL *url.URL
}

// Paginator decides the pagination query parameters for the page identified
// by token, and the token of the page after it. Next returning a nil token
// ends the extraction.
type Paginator interface {
	Params(token PageToken) url.Values
	Next(page *Page, token PageToken) (PageToken, error)
}

// DefaultTop is the maximum page size the admin api accepts.
const DefaultTop = 5000

// OffsetPaginator pages bulk endpoints with $top/$skip. The token is the
// cumulative skip count. Endpoints that return everything in one response set
// neither flag and get a single request.
type OffsetPaginator struct {
	TopRequired  bool
	SkipRequired bool
	Top          int
}

func (p OffsetPaginator) top() int {
	if p.Top > 0 {
		return p.Top
	}
	return DefaultTop
}

func (p OffsetPaginator) Params(token PageToken) url.Values {
	res := url.Values{}
	if p.TopRequired {
		res.Set("$top", strconv.Itoa(p.top()))
	}
	if token != nil {
		res.Set("$skip", strconv.Itoa(token.(int)))
	}
	return res
}

func (p OffsetPaginator) Next(page *Page, token PageToken) (PageToken, error) {
	if !p.SkipRequired {
		return nil, nil
	}
	if token == nil {
		return p.top(), nil
	}
	var body struct {
		Value []json.RawMessage `json:"value"`
	}
	// an empty or unexpected body means the api ran out of data, not an error
	if err := json.Unmarshal(page.Body, &body); err != nil || len(body.Value) == 0 {
		return nil, nil
	}
	return token.(int) + p.top(), nil
}
