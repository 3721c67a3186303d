// Package setflag is a flag.Value holding a set of values from a fixed list
// of options, given as a comma separated list or by repeating the flag.
package setflag

import (
	"fmt"
	"sort"
	"strings"
)

func New(options ...string) *SetFlag {
	sf := &SetFlag{
		values:  make(map[string]struct{}, len(options)),
		options: make(map[string]string, len(options)),
	}
	for _, opt := range options {
		sf.options[strings.ToLower(opt)] = opt
	}
	return sf
}

type SetFlag struct {
	// lowercased option -> option as given
	options map[string]string
	values  map[string]struct{}
}

// List returns the chosen values, sorted.
func (sf *SetFlag) List() []string {
	var values []string
	for k := range sf.values {
		values = append(values, k)
	}
	sort.Strings(values)
	return values
}

// Options returns every allowed value, sorted.
func (sf *SetFlag) Options() []string {
	var options []string
	for _, opt := range sf.options {
		options = append(options, opt)
	}
	sort.Strings(options)
	return options
}

// Has reports whether value was chosen. An empty set has everything.
func (sf *SetFlag) Has(value string) bool {
	if len(sf.values) == 0 {
		return true
	}
	_, has := sf.values[value]
	return has
}

func (sf *SetFlag) String() string {
	if sf == nil {
		return ""
	}
	return strings.Join(sf.List(), ", ")
}

// Set matches options case-insensitively, so "meet and greet" selects
// "Meet and Greet".
func (sf *SetFlag) Set(value string) error {
	for _, value := range strings.Split(value, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		opt, exists := sf.options[strings.ToLower(value)]
		if !exists {
			return fmt.Errorf("unsupported value '%s'; options are %s", value, strings.Join(sf.Options(), ", "))
		}
		sf.values[opt] = struct{}{}
	}
	return nil
}
