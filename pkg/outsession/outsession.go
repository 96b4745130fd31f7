// Package outsession writes extracted records as gzipped json lines, one
// session per stream per run, and keeps the per-stream replication watermark
// in a LastProcessedStore.
package outsession

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pinpt/go-common/io"
)

type Manager struct {
	opts   Opts
	logger hclog.Logger

	sessions   map[ID]*session
	sessionsMu sync.RWMutex

	lastID ID
}

// LastProcessedStore holds the replication watermark per stream between runs.
type LastProcessedStore interface {
	GetString(key ...string) string
	Set(value interface{}, key ...string) error
}

type Opts struct {
	Logger        hclog.Logger
	OutputDir     string
	LastProcessed LastProcessedStore
}

type ID int

func New(opts Opts) *Manager {
	if opts.OutputDir == "" {
		panic("provide OutputDir")
	}
	s := &Manager{}
	s.opts = opts
	s.logger = opts.Logger.Named("outsession")
	s.sessions = map[ID]*session{}
	return s
}

// NewSession opens a session for stream and returns the watermark stored by
// the previous run, empty if this is the first run.
func (s *Manager) NewSession(stream string) (_ ID, lastProcessed string, _ error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.lastID++
	id := s.lastID
	s.sessions[id] = &session{id: id, stream: stream, outputDir: s.opts.OutputDir}
	if s.opts.LastProcessed != nil {
		lastProcessed = s.opts.LastProcessed.GetString(stream)
	}
	s.logger.Info("create session", "stream", stream, "last_processed_old", lastProcessed)
	return id, lastProcessed, nil
}

func (s *Manager) Write(id ID, objs []map[string]interface{}) error {
	s.sessionsMu.RLock()
	sess := s.sessions[id]
	s.sessionsMu.RUnlock()
	return sess.Write(objs)
}

// Done closes the session and, if lastProcessed is not empty, persists it as
// the stream's new watermark. Sessions of failed extractions should be closed
// with an empty lastProcessed so the next run resumes from the old position.
func (s *Manager) Done(id ID, lastProcessed string) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	sess := s.sessions[id]
	if sess == nil {
		panic("could not find session by id")
	}
	delete(s.sessions, id)

	err := sess.Close()
	if err != nil {
		return err
	}
	if lastProcessed != "" && s.opts.LastProcessed != nil {
		if err := s.opts.LastProcessed.Set(lastProcessed, sess.stream); err != nil {
			return err
		}
	}
	s.logger.Info("session done", "stream", sess.stream, "records", sess.written, "last_processed_new", lastProcessed)
	return nil
}

type session struct {
	id        ID
	stream    string
	outputDir string
	written   int

	streamFile *io.JSONStream
	mu         sync.Mutex
}

// Close closes the session. Should not be called concurrently with Write.
func (s *session) Close() error {
	if s.streamFile == nil {
		// no records were written, there is no file
		return nil
	}
	return s.streamFile.Close()
}

func (s *session) createStreamIfNeeded() error {
	if s.streamFile != nil {
		return nil
	}
	base := strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.Itoa(int(s.id)) + ".json.gz"
	fn := filepath.Join(s.outputDir, s.stream, base)
	if err := os.MkdirAll(filepath.Dir(fn), 0777); err != nil {
		return err
	}
	streamFile, err := io.NewJSONStream(fn)
	if err != nil {
		return err
	}
	s.streamFile = streamFile
	return nil
}

func (s *session) Write(objs []map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createStreamIfNeeded(); err != nil {
		return err
	}
	for _, obj := range objs {
		if err := s.streamFile.Write(obj); err != nil {
			return err
		}
	}
	s.written += len(objs)
	return nil
}
