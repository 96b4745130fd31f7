package powerbi

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// ErrStop can be returned by a RecordHandler to stop the extraction early.
// No further requests are issued and Run returns nil.
var ErrStop = errors.New("stop extraction")

// RecordHandler receives records one at a time, in response order, as soon as
// each page is parsed.
type RecordHandler func(rec Record) error

// Extraction drives one stream to completion: build parameters for the
// current page token, issue one request, hand the parsed records over, ask
// the paginator for the next token, repeat until the token is nil. Requests
// are strictly sequential, there is never more than one in flight.
type Extraction struct {
	Logger    hclog.Logger
	Client    *Client
	Stream    *Stream
	Paginator Paginator
	// Overrides is the user supplied query string for this stream, for
	// example "$filter=Activity eq 'ViewReport'&$select=Id,Activity".
	Overrides string
	// ParentID is substituted into the path of child streams.
	ParentID string
}

// Run extracts the whole stream. Any transport or decoding failure aborts
// this stream's extraction, retrying is the transport's job, deciding whether
// to continue with other streams is the caller's.
func (e Extraction) Run(ctx context.Context, handle RecordHandler) error {
	logger := e.Logger.With("stream", e.Stream.Name)
	path := e.Stream.Path
	if e.Stream.Parent != "" {
		path = fmt.Sprintf(path, e.ParentID)
	}
	var token PageToken
	pages := 0
	records := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		params := ResolveParams(e.Stream, e.Paginator.Params(token), e.Overrides)
		logger.Debug("requesting page", "n", pages+1, "params", params.Encode())
		page, err := e.Client.Get(ctx, path, params)
		if err != nil {
			return err
		}
		recs, err := e.Stream.Parse(page.Body)
		if err != nil {
			return err
		}
		pages++
		for _, rec := range recs {
			records++
			if err := handle(rec); err != nil {
				if err == ErrStop {
					logger.Info("extraction stopped by consumer", "pages", pages, "records", records)
					return nil
				}
				return err
			}
		}
		token, err = e.Paginator.Next(page, token)
		if err != nil {
			return err
		}
		if token == nil {
			logger.Info("extraction done", "pages", pages, "records", records)
			return nil
		}
	}
}
