package powerbi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Level: hclog.Warn})
}

func testClient(serverURL string) *Client {
	return NewClient(testLogger(), serverURL, func(force bool) (string, error) {
		return "test-token", nil
	})
}

func TestExtractionOffsetEndToEnd(t *testing.T) {
	assert := assert.New(t)

	var skips []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skips = append(skips, r.URL.Query().Get("$skip"))
		switch r.URL.Query().Get("$skip") {
		case "":
			fmt.Fprint(w, `{"value":[{"id":"r1"},{"id":"r2"}]}`)
		case "2":
			fmt.Fprint(w, `{"value":[{"id":"r3"}]}`)
		default:
			fmt.Fprint(w, `{"value":[]}`)
		}
	}))
	defer server.Close()

	stream := &Stream{
		Name:         "groups",
		Path:         "/admin/groups",
		PrimaryKeys:  []string{"id"},
		TopRequired:  true,
		SkipRequired: true,
		Top:          2,
	}
	var got []string
	err := Extraction{
		Logger:    testLogger(),
		Client:    testClient(server.URL),
		Stream:    stream,
		Paginator: stream.Paginator(time.Time{}),
	}.Run(context.Background(), func(rec Record) error {
		got = append(got, rec["id"].(string))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]string{"r1", "r2", "r3"}, got)
	// exactly three requests with skip values none, 2, 4
	assert.Equal([]string{"", "2", "4"}, skips)
}

func TestExtractionStopEarly(t *testing.T) {
	assert := assert.New(t)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"value":[{"id":"r1"},{"id":"r2"}]}`)
	}))
	defer server.Close()

	stream := &Stream{
		Name:         "groups",
		Path:         "/admin/groups",
		PrimaryKeys:  []string{"id"},
		TopRequired:  true,
		SkipRequired: true,
		Top:          2,
	}
	var got []string
	err := Extraction{
		Logger:    testLogger(),
		Client:    testClient(server.URL),
		Stream:    stream,
		Paginator: stream.Paginator(time.Time{}),
	}.Run(context.Background(), func(rec Record) error {
		got = append(got, rec["id"].(string))
		return ErrStop
	})
	if err != nil {
		t.Fatal(err)
	}

	// the consumer stopped pulling, no further requests were issued
	assert.Equal([]string{"r1"}, got)
	assert.Equal(1, requests)
}

func TestExtractionActivityEndToEnd(t *testing.T) {
	assert := assert.New(t)

	day1 := time.Date(2020, 8, 13, 7, 0, 0, 0, time.UTC)
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("continuationToken") != "":
			queries = append(queries, "cont="+q.Get("continuationToken"))
			fmt.Fprint(w, `{"activityEventEntities":[{"Id":"e2","CreationTime":"2020-08-13T09:00:00"}]}`)
		case q.Get("startDateTime") == "'2020-08-13T07:00:00Z'":
			queries = append(queries, "day1")
			fmt.Fprint(w, `{"activityEventEntities":[{"Id":"e1","CreationTime":"2020-08-13T08:00:00"}],"continuationToken":"tok1"}`)
		default:
			queries = append(queries, "day2")
			fmt.Fprint(w, `{"activityEventEntities":[{"Id":"e3","CreationTime":"2020-08-14T01:00:00"}]}`)
		}
	}))
	defer server.Close()

	stream := &Stream{
		Name:           "activityevents",
		Path:           "/admin/activityevents",
		PrimaryKeys:    []string{"Id"},
		ReplicationKey: "CreationTime",
		ListKey:        "activityEventEntities",
		Activity:       true,
	}
	pag := NewActivityPaginator(day1)
	// "now" is noon on day 2, so day 2 is queried and day 3 is not
	pag.now = func() time.Time { return time.Date(2020, 8, 14, 12, 0, 0, 0, time.UTC) }

	var got []string
	err := Extraction{
		Logger:    testLogger(),
		Client:    testClient(server.URL),
		Stream:    stream,
		Paginator: pag,
	}.Run(context.Background(), func(rec Record) error {
		got = append(got, rec["Id"].(string))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]string{"e1", "e2", "e3"}, got)
	assert.Equal([]string{"day1", "cont='tok1'", "day2"}, queries)
}

func TestExtractionChildPath(t *testing.T) {
	assert := assert.New(t)

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, `{"value":[{"datasourceId":"ds1"}]}`)
	}))
	defer server.Close()

	stream := &Stream{
		Name:        "datasources",
		Path:        "/admin/datasets/%v/datasources",
		PrimaryKeys: []string{"datasourceId"},
		Parent:      "datasets",
	}
	err := Extraction{
		Logger:    testLogger(),
		Client:    testClient(server.URL),
		Stream:    stream,
		Paginator: stream.Paginator(time.Time{}),
		ParentID:  "abc-123",
	}.Run(context.Background(), func(rec Record) error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]string{"/admin/datasets/abc-123/datasources"}, paths)
}

func TestExtractionTransportFailureFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	stream := &Stream{Name: "reports", Path: "/admin/reports", PrimaryKeys: []string{"id"}}
	err := Extraction{
		Logger:    testLogger(),
		Client:    testClient(server.URL),
		Stream:    stream,
		Paginator: stream.Paginator(time.Time{}),
	}.Run(context.Background(), func(rec Record) error { return nil })
	if err == nil {
		t.Fatal("wanted error from failed request")
	}
}

func TestClientRefreshesTokenOn401(t *testing.T) {
	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			http.Error(w, `{}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer server.Close()

	token := "stale"
	client := NewClient(testLogger(), server.URL, func(force bool) (string, error) {
		if force {
			token = "fresh"
		}
		return token, nil
	})
	page, err := client.Get(context.Background(), "/admin/groups", nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(200, page.StatusCode)
	assert.Equal("fresh", token)
}
