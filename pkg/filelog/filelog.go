// Package filelog provides a log file writer that syncs after every write,
// so log lines survive a crash.
package filelog

import (
	"io"
	"os"
	"path/filepath"
)

type syncWriter struct {
	f *os.File
}

func NewSyncWriter(loc string) (io.Writer, error) {
	err := os.MkdirAll(filepath.Dir(loc), 0777)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(loc, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	s := &syncWriter{}
	s.f = f
	return s, nil
}

func (s *syncWriter) Write(b []byte) (n int, _ error) {
	n, err := s.f.Write(b)
	if err != nil {
		return n, err
	}
	err = s.f.Sync()
	if err != nil {
		return n, err
	}
	return n, nil
}
