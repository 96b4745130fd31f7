package powerbi

import (
	"context"
	"net/url"
)

// DefaultStreams are the resources this connector extracts. Top/skip flags
// follow what each admin endpoint supports: apps requires $top but does not
// page, groups and refreshables page with $top/$skip, reports and datasets
// return everything in one response, datasources is fetched once per dataset,
// and the activity log uses the date window + continuation token scheme.
func DefaultStreams() []*Stream {
	return []*Stream{
		{
			Name:        "apps",
			Path:        "/admin/apps",
			PrimaryKeys: []string{"id"},
			TopRequired: true,
		},
		{
			Name:        "groups",
			Path:        "/admin/groups",
			PrimaryKeys: []string{"id"},
			Params: map[string]string{
				"$expand": "users,reports,dashboards,datasets,dataflows,workbooks",
			},
			TopRequired:  true,
			SkipRequired: true,
		},
		{
			Name:        "reports",
			Path:        "/admin/reports",
			PrimaryKeys: []string{"id"},
		},
		{
			Name:         "refreshables",
			Path:         "/admin/capacities/refreshables",
			PrimaryKeys:  []string{"id"},
			TopRequired:  true,
			SkipRequired: true,
		},
		{
			Name:        "datasets",
			Path:        "/admin/datasets",
			PrimaryKeys: []string{"id"},
		},
		{
			Name:        "datasources",
			Path:        "/admin/datasets/%v/datasources",
			PrimaryKeys: []string{"datasourceId"},
			Parent:      "datasets",
		},
		{
			Name:           "activityevents",
			Path:           "/admin/activityevents",
			PrimaryKeys:    []string{"Id"},
			ReplicationKey: "CreationTime",
			ListKey:        "activityEventEntities",
			Activity:       true,
		},
	}
}

// Validate makes one cheap authenticated request to check that the
// credentials work and the account has admin api access.
func Validate(ctx context.Context, client *Client) error {
	params := url.Values{}
	params.Set("$top", "1")
	_, err := client.Get(ctx, "/admin/groups", params)
	return err
}
