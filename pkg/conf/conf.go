// Package conf loads the connector configuration file.
package conf

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/pinpt/go-common/v10/datetime"
	yaml "gopkg.in/yaml.v2"
)

// Stream is per-stream user configuration.
type Stream struct {
	// Parameters is a url-query-style string of extra query parameters, for
	// example "$filter=Activity eq 'ViewReport'&$select=Id,Activity".
	// Individual pairs that fail to parse are dropped.
	Parameters string `yaml:"parameters"`
	Disabled   bool   `yaml:"disabled"`
}

type Config struct {
	TenantID string `yaml:"tenant_id"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// StartDate is the initial replication position for the activity log,
	// iso-8601. Only used until the first successful run stores a watermark.
	StartDate string `yaml:"start_date"`
	// BaseURL overrides the api root, used in tests.
	BaseURL string            `yaml:"base_url"`
	Streams map[string]Stream `yaml:"streams"`
}

// Load reads and validates the configuration at loc.
func Load(loc string) (res Config, _ error) {
	b, err := ioutil.ReadFile(loc)
	if err != nil {
		return res, err
	}
	if err := yaml.Unmarshal(b, &res); err != nil {
		return res, fmt.Errorf("invalid config file %v: %v", loc, err)
	}
	var missing []string
	for _, f := range []struct{ k, v string }{
		{"tenant_id", res.TenantID},
		{"client_id", res.ClientID},
		{"username", res.Username},
		{"password", res.Password},
		{"start_date", res.StartDate},
	} {
		if f.v == "" {
			missing = append(missing, f.k)
		}
	}
	if len(missing) != 0 {
		return res, fmt.Errorf("config file %v is missing required fields: %v", loc, strings.Join(missing, ", "))
	}
	if _, err := res.StartTime(); err != nil {
		return res, fmt.Errorf("config file %v has invalid start_date: %v", loc, err)
	}
	return res, nil
}

// StartTime parses StartDate.
func (s Config) StartTime() (time.Time, error) {
	return datetime.ISODateToTime(s.StartDate)
}

// Stream returns the user configuration for the named stream, zero value if
// not configured.
func (s Config) Stream(name string) Stream {
	return s.Streams[name]
}
