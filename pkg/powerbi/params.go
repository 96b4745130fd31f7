package powerbi

import (
	"net/url"
	"strings"
)

// ResolveParams builds the final outgoing query parameters for one request.
// Later steps win on key collision: the stream's static parameters, then the
// pagination parameters, then the user supplied overrides, and last the two
// consistency fix-ups the api requires. The stream descriptor is never
// mutated, every request starts from a fresh copy of the static parameters.
func ResolveParams(stream *Stream, pagination url.Values, overrides string) url.Values {
	params := url.Values{}
	for k, v := range stream.Params {
		params.Set(k, v)
	}
	for k, vv := range pagination {
		for _, v := range vv {
			params.Set(k, v)
		}
	}
	over := parseOverrides(overrides)
	for k, vv := range over {
		for _, v := range vv {
			params.Set(k, v)
		}
	}

	// a $filter that references $count only works when $count is requested
	if filter := over.Get("$filter"); strings.Contains(filter, "$count") {
		params.Set("$count", "true")
	}

	// primary keys must always be selectable, append any the user left out of
	// their $select, original fields first
	if sel := over.Get("$select"); sel != "" {
		fields := strings.Split(sel, ",")
		for _, pk := range stream.PrimaryKeys {
			found := false
			for _, f := range fields {
				if f == pk {
					found = true
					break
				}
			}
			if !found {
				fields = append(fields, pk)
			}
		}
		params.Set("$select", strings.Join(fields, ","))
	}
	return params
}

// parseOverrides parses a url-query-style override string, e.g.
// "$filter=...&$select=...". Pairs that fail to parse are dropped instead of
// failing the request, user supplied parameters are best effort on purpose.
func parseOverrides(s string) url.Values {
	res := url.Values{}
	s = strings.TrimPrefix(s, "?")
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k, err := url.QueryUnescape(kv[0])
		if err != nil {
			continue
		}
		v, err := url.QueryUnescape(kv[1])
		if err != nil {
			continue
		}
		res.Add(k, v)
	}
	return res
}
