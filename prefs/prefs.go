// Package prefs is the user's settings: named booleans, integers and
// strings, stored as a YAML file.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Setting names. The spellings match what the festival app has always
// written, including its typos, so existing exports load unchanged.
const (
	MustSeeAlert         = "mustSeeAlert"
	MightSeeAlert        = "mightSeeAlert"
	OnlyAlertForAttended = "onlyAlertForAttended"
	AlertForShows        = "alertForShows"
	AlertForSpecial      = "alertForSpecial"
	AlertForMandG        = "alertForMandG"
	AlertForClinics      = "alertForClinics"
	AlertForListening    = "alertForListening"
	AlertForUnofficial   = "alertForUnofficalEvents"
	MinBeforeAlert       = "minBeforeAlert"
	AlertSound           = "alertSound"
	HideExpiredEvents    = "hideExpireScheduleData"
	ScheduleURL          = "scheduleUrl"
	LineupURL            = "artistUrl"
)

// Defaults are used for any setting the file doesn't mention.
var Defaults = map[string]string{
	MustSeeAlert:         "true",
	MightSeeAlert:        "true",
	OnlyAlertForAttended: "false",
	AlertForShows:        "true",
	AlertForSpecial:      "true",
	AlertForMandG:        "false",
	AlertForClinics:      "false",
	AlertForListening:    "false",
	AlertForUnofficial:   "true",
	MinBeforeAlert:       "10",
	AlertSound:           "default",
	HideExpiredEvents:    "true",
}

// Store is safe for concurrent use.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open reads the store at path. A missing file yields the defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}}

	bs, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("error reading preferences '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(bs, &s.values); err != nil {
		return nil, fmt.Errorf("error parsing preferences '%s': %w", path, err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

// Memory returns a store that is never written to disk.
func Memory(values map[string]string) *Store {
	s := &Store{values: map[string]string{}}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Store) String(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[name]; ok {
		return v
	}
	return Defaults[name]
}

// Bool reports false for unset or unparseable values.
func (s *Store) Bool(name string) bool {
	b, _ := strconv.ParseBool(s.String(name))
	return b
}

// Int falls back to the default when the stored value isn't a number.
func (s *Store) Int(name string) int {
	if n, err := strconv.Atoi(s.String(name)); err == nil {
		return n
	}
	n, _ := strconv.Atoi(Defaults[name])
	return n
}

func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *Store) SetBool(name string, value bool) { s.Set(name, strconv.FormatBool(value)) }
func (s *Store) SetInt(name string, value int)   { s.Set(name, strconv.Itoa(value)) }

// All returns every known setting, defaults included, sorted by name.
func (s *Store) All() [][2]string {
	s.mu.RLock()
	merged := map[string]string{}
	for k, v := range Defaults {
		merged[k] = v
	}
	for k, v := range s.values {
		merged[k] = v
	}
	s.mu.RUnlock()

	out := make([][2]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, [2]string{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Save writes the explicitly set values. A memory store does nothing.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	bs, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating dir for preferences '%s': %w", s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bs, 0644); err != nil {
		return fmt.Errorf("error writing preferences '%s': %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

// Validate checks that name is a known setting and value suits it.
func Validate(name, value string) error {
	def, known := Defaults[name]
	if !known && name != ScheduleURL && name != LineupURL {
		return fmt.Errorf("unknown setting '%s'", name)
	}
	if _, err := strconv.ParseBool(def); err == nil {
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("setting '%s' must be true or false, not '%s'", name, value)
		}
	}
	if name == MinBeforeAlert {
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return fmt.Errorf("setting '%s' must be a number of minutes, not '%s'", name, value)
		}
	}
	return nil
}
