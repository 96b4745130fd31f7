// Package jsonstore persists small key/value state, such as the per-stream
// replication watermarks, as a single json file that is rewritten atomically
// on every change.
package jsonstore

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"sync"
)

type Store struct {
	loc  string
	data map[string]interface{}
	mu   sync.RWMutex
}

// New loads the store at loc. A missing file is an empty store.
func New(loc string) (*Store, error) {
	s := &Store{}
	s.loc = loc
	s.data = map[string]interface{}{}

	b, err := ioutil.ReadFile(loc)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return s, nil
	}

	return s, json.Unmarshal(b, &s.data)
}

func keyStr(key ...string) string {
	return strings.Join(key, "@")
}

func (s *Store) Get(key ...string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[keyStr(key...)]
}

// GetString returns the value at key if it is a string, empty otherwise.
func (s *Store) GetString(key ...string) string {
	res, _ := s.Get(key...).(string)
	return res
}

func (s *Store) Set(val interface{}, key ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[keyStr(key...)] = val

	b, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	return writeToTempAndRename(bytes.NewReader(b), s.loc)
}

func writeToTempAndRename(r io.Reader, loc string) error {
	temp := loc + ".tmp"
	f, err := os.Create(temp)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	if err != nil {
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	return os.Rename(temp, loc)
}
