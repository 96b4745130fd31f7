package powerbi

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one emitted item. The payload is opaque except for the primary
// key and replication key fields declared by the stream.
type Record map[string]interface{}

// Stream is the static read-only description of one api resource.
type Stream struct {
	Name string
	// Path below the api base url. For child streams it contains one %v that
	// is substituted with the parent record id.
	Path        string
	PrimaryKeys []string
	// ReplicationKey is the record field used as the resume watermark for
	// incrementally replicated streams.
	ReplicationKey string
	// Params are static query parameters. They are copied into a fresh map on
	// every request, descriptors are never mutated.
	Params       map[string]string
	TopRequired  bool
	SkipRequired bool
	Top          int
	// ListKey is the response field holding the record array, "value" when
	// empty. The activity log nests records under a different key.
	ListKey string
	// Activity marks the append-only activity log, which paginates by date
	// window and continuation token instead of $top/$skip.
	Activity bool
	// Parent names the stream whose record ids feed Path.
	Parent string
}

func (s *Stream) listKey() string {
	if s.ListKey != "" {
		return s.ListKey
	}
	return "value"
}

// Paginator returns the paginator for one extraction of this stream. start is
// only used by activity streams.
func (s *Stream) Paginator(start time.Time) Paginator {
	if s.Activity {
		return NewActivityPaginator(start)
	}
	return OffsetPaginator{TopRequired: s.TopRequired, SkipRequired: s.SkipRequired, Top: s.Top}
}

// Parse extracts the records from one response body. A missing or empty
// record list is not an error, it is how the api signals no data on the page.
func (s *Stream) Parse(body []byte) ([]Record, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("invalid json in %v response: %v", s.Name, err)
	}
	raw, ok := m[s.listKey()]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var res []Record
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("invalid %v list in %v response: %v", s.listKey(), s.Name, err)
	}
	return res, nil
}
