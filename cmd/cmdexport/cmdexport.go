// Package cmdexport runs a full extraction of all enabled streams.
package cmdexport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pinpt/powerbi-metadata/pkg/conf"
	"github.com/pinpt/powerbi-metadata/pkg/fsconf"
	"github.com/pinpt/powerbi-metadata/pkg/jsonstore"
	"github.com/pinpt/powerbi-metadata/pkg/outsession"
	"github.com/pinpt/powerbi-metadata/pkg/powerbi"
)

type Opts struct {
	Logger hclog.Logger
	Config conf.Config
	Locs   fsconf.Locs
	// OutputDir overrides Locs.Output when set.
	OutputDir string
}

func Run(ctx context.Context, opts Opts) error {
	exp, err := newExport(ctx, opts)
	if err != nil {
		return err
	}
	return exp.run(ctx)
}

type export struct {
	logger        hclog.Logger
	opts          Opts
	client        *powerbi.Client
	sessions      *outsession.Manager
	lastProcessed *jsonstore.Store

	// ids of the datasets seen this run, they feed the datasources paths
	datasetIDs []string
}

func newExport(ctx context.Context, opts Opts) (*export, error) {
	s := &export{}
	s.logger = opts.Logger.Named("export")
	s.opts = opts

	if err := os.MkdirAll(opts.Locs.State, 0777); err != nil {
		return nil, err
	}
	var err error
	s.lastProcessed, err = jsonstore.New(opts.Locs.LastProcessedFile)
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = opts.Locs.Output
	}
	s.sessions = outsession.New(outsession.Opts{
		Logger:        s.logger,
		OutputDir:     outputDir,
		LastProcessed: s.lastProcessed,
	})

	manager := powerbi.NewTokenManager(s.logger)
	creds := powerbi.Credentials{
		TenantID: opts.Config.TenantID,
		ClientID: opts.Config.ClientID,
		Username: opts.Config.Username,
		Password: opts.Config.Password,
	}
	s.client = powerbi.NewClient(s.logger, opts.Config.BaseURL, manager.TokenFunc(ctx, creds))
	return s, nil
}

func (s *export) run(ctx context.Context) error {
	started := time.Now()
	var failed []string
	for _, stream := range powerbi.DefaultStreams() {
		sc := s.opts.Config.Stream(stream.Name)
		if sc.Disabled {
			s.logger.Info("stream is disabled in config, skipping", "stream", stream.Name)
			continue
		}
		if err := s.exportStream(ctx, stream, sc); err != nil {
			if err == ctx.Err() {
				return err
			}
			s.logger.Error("stream export failed", "stream", stream.Name, "err", err)
			failed = append(failed, stream.Name)
		}
	}
	s.logger.Info("export finished", "duration", time.Since(started).String(), "failed", len(failed))
	if len(failed) != 0 {
		return fmt.Errorf("export failed for streams: %v", strings.Join(failed, ", "))
	}
	return nil
}

func (s *export) exportStream(ctx context.Context, stream *powerbi.Stream, sc conf.Stream) error {
	sessionID, lastProcessed, err := s.sessions.NewSession(stream.Name)
	if err != nil {
		return err
	}

	start, err := s.startTime(stream, lastProcessed)
	if err != nil {
		s.sessions.Done(sessionID, "")
		return err
	}

	maxReplicationValue := ""
	handle := func(rec powerbi.Record) error {
		if stream.ReplicationKey != "" {
			if v, ok := rec[stream.ReplicationKey].(string); ok && v > maxReplicationValue {
				maxReplicationValue = v
			}
		}
		if stream.Name == "datasets" {
			if id, ok := rec["id"].(string); ok {
				s.datasetIDs = append(s.datasetIDs, id)
			}
		}
		return s.sessions.Write(sessionID, []map[string]interface{}{rec})
	}

	extract := func(parentID string) error {
		return powerbi.Extraction{
			Logger:    s.logger,
			Client:    s.client,
			Stream:    stream,
			Paginator: stream.Paginator(start),
			Overrides: sc.Parameters,
			ParentID:  parentID,
		}.Run(ctx, handle)
	}

	if stream.Parent != "" {
		for _, id := range s.datasetIDs {
			if err := extract(id); err != nil {
				s.sessions.Done(sessionID, "")
				return err
			}
		}
		return s.sessions.Done(sessionID, "")
	}

	if err := extract(""); err != nil {
		// close without a watermark so the next run resumes from the old one
		s.sessions.Done(sessionID, "")
		return err
	}
	return s.sessions.Done(sessionID, maxReplicationValue)
}

// startTime returns the starting replication position for an activity stream:
// the previous run's watermark when there is one, the configured start_date
// otherwise.
func (s *export) startTime(stream *powerbi.Stream, lastProcessed string) (time.Time, error) {
	if !stream.Activity {
		return time.Time{}, nil
	}
	if lastProcessed != "" {
		ts, err := parseTimestamp(lastProcessed)
		if err != nil {
			return time.Time{}, fmt.Errorf("stored watermark for stream %v is invalid: %v", stream.Name, err)
		}
		return ts, nil
	}
	return s.opts.Config.StartTime()
}

// parseTimestamp accepts the timestamp formats the api emits in records, with
// or without zone.
func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %v", v)
}
