package powerbi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pageWithBody(t *testing.T, body string) *Page {
	t.Helper()
	u, err := url.Parse("https://api.powerbi.com/v1.0/myorg/admin/groups")
	if err != nil {
		t.Fatal(err)
	}
	return &Page{StatusCode: 200, Body: []byte(body), RequestURL: u}
}

func TestOffsetPaginatorDisabled(t *testing.T) {
	assert := assert.New(t)
	p := OffsetPaginator{TopRequired: false, SkipRequired: false}

	token, err := p.Next(pageWithBody(t, `{"value":[{"id":"a"},{"id":"b"}]}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(token)

	// single page resources do not send $top or $skip
	assert.Equal(url.Values{}, p.Params(nil))
}

func TestOffsetPaginatorSequence(t *testing.T) {
	assert := assert.New(t)
	p := OffsetPaginator{TopRequired: true, SkipRequired: true, Top: 2}

	// first page done, token for page 2 is the page size
	token, err := p.Next(pageWithBody(t, `{"value":[{"id":"a"},{"id":"b"}]}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(2, token)

	// tokens form the arithmetic sequence top, 2*top, ...
	token, err = p.Next(pageWithBody(t, `{"value":[{"id":"c"},{"id":"d"}]}`), token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(4, token)

	// empty page ends the sequence
	token, err = p.Next(pageWithBody(t, `{"value":[]}`), token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(token)
}

func TestOffsetPaginatorMissingValueStops(t *testing.T) {
	assert := assert.New(t)
	p := OffsetPaginator{SkipRequired: true, Top: 10}

	token, err := p.Next(pageWithBody(t, `{}`), 10)
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(token)

	token, err = p.Next(pageWithBody(t, `not json`), 10)
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(token)
}

func TestOffsetPaginatorParams(t *testing.T) {
	assert := assert.New(t)
	p := OffsetPaginator{TopRequired: true, SkipRequired: true, Top: 2}

	params := p.Params(nil)
	assert.Equal("2", params.Get("$top"))
	assert.Equal("", params.Get("$skip"))

	params = p.Params(4)
	assert.Equal("2", params.Get("$top"))
	assert.Equal("4", params.Get("$skip"))
}

func TestOffsetPaginatorDefaultTop(t *testing.T) {
	assert := assert.New(t)
	p := OffsetPaginator{TopRequired: true, SkipRequired: true}

	token, err := p.Next(pageWithBody(t, `{"value":[{"id":"a"}]}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(5000, token)
	assert.Equal("5000", p.Params(nil).Get("$top"))
}
