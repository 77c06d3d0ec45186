package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/tinystore"
)

// BuildStore converts a parsed seed into a [tinystore.Store].
//
// The seed's state map becomes the store's initial state. A nil logger
// leaves the store on [slog.Default]. Extra options are applied after the
// options derived from the seed.
func BuildStore(cfg *Config, logger *slog.Logger, extra ...tinystore.Option) (*tinystore.Store, error) {
	opts := []tinystore.Option{
		tinystore.WithPanicRecovery(cfg.RecoverPanics),
	}

	if logger != nil {
		opts = append(opts, tinystore.WithLogger(logger))
	}
	if cfg.Name != "" {
		opts = append(opts, tinystore.WithName(cfg.Name))
	}
	opts = append(opts, extra...)

	st, err := tinystore.New(tinystore.State(cfg.State), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return st, nil
}

// ParseAssignment parses a "key=value" or "key+=number" assignment.
//
// The value is decoded as a YAML flow value, so "5" is an int, "true" a
// bool, "[a, b]" a list and "{x: 1}" a map. Values that are not valid YAML
// are kept as plain strings. An empty value decodes to nil.
//
// The "+=" form produces an [tinystore.Updater] that adds the number to the
// key's previous numeric value (absent counts as zero).
func ParseAssignment(s string) (string, tinystore.Entry, error) {
	idx := strings.Index(s, "=")
	if idx == -1 {
		return "", nil, fmt.Errorf("assignment %q must have the form key=value", s)
	}

	key := s[:idx]
	raw := s[idx+1:]

	increment := strings.HasSuffix(key, "+")
	if increment {
		key = strings.TrimSuffix(key, "+")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil, fmt.Errorf("assignment %q: key cannot be empty", s)
	}

	value := decodeValue(raw)

	if !increment {
		return key, tinystore.Literal{Value: value}, nil
	}

	delta, ok := toFloat(value)
	if !ok {
		return "", nil, fmt.Errorf("assignment %q: increment must be a number", s)
	}
	return key, tinystore.Updater(func(prev any) any {
		return addNumber(prev, value, delta)
	}), nil
}

// BuildUpdate converts assignments into a [tinystore.Update], in argument order.
func BuildUpdate(assignments []string) (*tinystore.Update, error) {
	u := tinystore.NewUpdate()
	for _, a := range assignments {
		key, entry, err := ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		u.With(key, entry)
	}
	return u, nil
}

// Diff returns an update that turns previous into next.
//
// Keys are compared shallowly: a key is included when it is new or its value
// is not deeply equal to the previous one. Keys missing from next are set to
// nil, since stores never delete keys. Keys are ordered alphabetically.
// Returns nil if nothing changed.
func Diff(previous, next map[string]any) *tinystore.Update {
	keys := make([]string, 0, len(next))
	for k := range next {
		keys = append(keys, k)
	}
	for k := range previous {
		if _, ok := next[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	u := tinystore.NewUpdate()
	for _, k := range keys {
		newVal, inNext := next[k]
		oldVal, inPrev := previous[k]

		switch {
		case !inNext:
			if oldVal != nil {
				u.Set(k, nil)
			}
		case !inPrev || !reflect.DeepEqual(oldVal, newVal):
			u.Set(k, newVal)
		}
	}

	if u.Len() == 0 {
		return nil
	}
	return u
}

func decodeValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// addNumber adds delta to prev, keeping integers integral when both sides are.
func addNumber(prev, raw any, delta float64) any {
	_, deltaIsInt := raw.(int)

	switch p := prev.(type) {
	case nil:
		return raw
	case int:
		if deltaIsInt {
			return p + raw.(int)
		}
		return float64(p) + delta
	case int64:
		if deltaIsInt {
			return p + int64(raw.(int))
		}
		return float64(p) + delta
	case float64:
		return p + delta
	default:
		// non-numeric previous values are replaced
		return raw
	}
}
