package powerbi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// apiDateFormat is the exact wire format the admin api requires for date-time
// query parameters, including the surrounding single quotes.
const apiDateFormat = "'2006-01-02T15:04:05Z'"

// ActivityToken is the composite cursor for the activity events log: the UTC
// day currently being queried plus the opaque in-day continuation token
// returned by the api. An empty Continuation means start at the beginning of
// the window.
type ActivityToken struct {
	WindowStart  time.Time
	Continuation string
}

// ActivityPaginator walks the append-only activity log. The api rejects
// queries spanning more than a single UTC day and pages within a day via
// continuation tokens, so the cursor advances on two levels: follow the
// continuation token while the api returns one, then roll the window forward
// one calendar day until it would reach into the future.
type ActivityPaginator struct {
	// Start is the starting replication position, either the configured start
	// date or the previous run's watermark.
	Start time.Time

	now func() time.Time
}

func NewActivityPaginator(start time.Time) *ActivityPaginator {
	return &ActivityPaginator{Start: start}
}

func (p *ActivityPaginator) utcNow() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

func (p *ActivityPaginator) Params(token PageToken) url.Values {
	res := url.Values{}
	if token == nil {
		setWindowParams(res, p.Start)
		return res
	}
	tok := token.(ActivityToken)
	if tok.Continuation != "" {
		// the api resolves the token to its page internally and rejects
		// requests that also carry date parameters
		res.Set("continuationToken", "'"+tok.Continuation+"'")
		return res
	}
	setWindowParams(res, tok.WindowStart)
	return res
}

func (p *ActivityPaginator) Next(page *Page, token PageToken) (PageToken, error) {
	var windowStart time.Time
	if token == nil {
		// anchor the window on what was actually queried rather than on the
		// nominal start, the two can differ by sub-day truncation
		raw := page.RequestURL.Query().Get("startDateTime")
		ts, err := time.Parse(apiDateFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("activity events request was sent without a valid startDateTime: %v", err)
		}
		windowStart = ts
	} else {
		windowStart = token.(ActivityToken).WindowStart
	}
	var body struct {
		ContinuationToken string `json:"continuationToken"`
	}
	// an absent continuationToken is the normal day-done signal
	json.Unmarshal(page.Body, &body)
	if body.ContinuationToken != "" {
		cont, err := url.QueryUnescape(body.ContinuationToken)
		if err != nil {
			cont = body.ContinuationToken
		}
		return ActivityToken{WindowStart: windowStart, Continuation: cont}, nil
	}
	next := dayStart(windowStart).Add(24 * time.Hour)
	if next.Before(p.utcNow()) {
		return ActivityToken{WindowStart: next}, nil
	}
	// the log caught up with real time, a future day cannot have data yet
	return nil, nil
}

// setWindowParams emits the half-open single-day window starting at start:
// startDateTime as given, endDateTime at the last microsecond of that UTC day.
func setWindowParams(res url.Values, start time.Time) {
	start = start.UTC()
	res.Set("startDateTime", start.Format(apiDateFormat))
	end := dayStart(start).Add(24*time.Hour - time.Microsecond)
	res.Set("endDateTime", end.Format(apiDateFormat))
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
