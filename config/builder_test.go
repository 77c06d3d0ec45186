package config

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/jpalmerr/tinystore"
)

func TestBuildStore(t *testing.T) {
	cfg, err := Parse([]byte(`
name: session
recover_panics: true
state:
  count: 1
  user: alice
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	st, err := BuildStore(cfg, logger)
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}

	if st.Name() != "session" {
		t.Errorf("Name() = %q, want %q", st.Name(), "session")
	}
	if got := st.GetState("user"); got != "alice" {
		t.Errorf("GetState(user) = %v, want %v", got, "alice")
	}

	// recover_panics is wired through
	_ = st.SubscribeEffect("count", func(prev, curr tinystore.State) error {
		panic("boom")
	})
	err = st.SetState(tinystore.NewUpdate().Set("count", 2))
	if err == nil || !strings.Contains(err.Error(), "correlation_id") {
		t.Errorf("SetState() error = %v, want recovered panic", err)
	}
	if !strings.Contains(buf.String(), "store=session") {
		t.Errorf("log should contain store name, got: %s", buf.String())
	}
}

func TestBuildStore_ExtraOptions(t *testing.T) {
	cfg := &Config{State: map[string]any{"a": 1}}

	var events []tinystore.EventType
	obs := tinystore.ObserverFunc(func(e tinystore.Event) {
		events = append(events, e.Type)
	})

	if _, err := BuildStore(cfg, nil, tinystore.WithObserver(obs)); err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}

	if !reflect.DeepEqual(events, []tinystore.EventType{tinystore.EventStoreCreate}) {
		t.Errorf("events = %v, want [%v]", events, tinystore.EventStoreCreate)
	}
}

func TestBuildStore_InvalidOption(t *testing.T) {
	cfg := &Config{}

	_, err := BuildStore(cfg, nil, tinystore.WithName(""))
	if err == nil {
		t.Fatal("BuildStore() expected error for invalid option, got nil")
	}
	if !strings.Contains(err.Error(), "failed to create store") {
		t.Errorf("BuildStore() error = %v, want error containing 'failed to create store'", err)
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		input   string
		key     string
		want    any
		wantErr bool
	}{
		{"count=5", "count", 5, false},
		{"ratio=0.25", "ratio", 0.25, false},
		{"enabled=true", "enabled", true, false},
		{"user=alice", "user", "alice", false},
		{"greeting=hello world", "greeting", "hello world", false},
		{"tags=[a, b]", "tags", []any{"a", "b"}, false},
		{"theme={mode: dark}", "theme", map[string]any{"mode": "dark"}, false},
		{"quoted=\"5\"", "quoted", "5", false},
		{"empty=", "empty", nil, false},
		{"expr=a=b", "expr", "a=b", false},
		{" padded =1", "padded", 1, false},
		{"broken=[unclosed", "broken", "[unclosed", false},
		{"novalue", "", nil, true},
		{"=5", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, entry, err := ParseAssignment(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseAssignment() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAssignment() error = %v", err)
			}

			if key != tt.key {
				t.Errorf("key = %q, want %q", key, tt.key)
			}
			lit, ok := entry.(tinystore.Literal)
			if !ok {
				t.Fatalf("entry = %T, want tinystore.Literal", entry)
			}
			if !reflect.DeepEqual(lit.Value, tt.want) {
				t.Errorf("value = %#v, want %#v", lit.Value, tt.want)
			}
		})
	}
}

func TestParseAssignment_Increment(t *testing.T) {
	st := tinystore.CreateStore(tinystore.State{
		"count": 1,
		"big":   int64(10),
		"ratio": 0.5,
		"name":  "alice",
	})

	u, err := BuildUpdate([]string{"count+=2", "big+=5", "ratio+=1", "fresh+=3", "name+=1", "count2+=0.5"})
	if err != nil {
		t.Fatalf("BuildUpdate() error = %v", err)
	}
	if err := st.SetState(u); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	want := map[string]any{
		"count":  3,
		"big":    int64(15),
		"ratio":  1.5,
		"fresh":  3,
		"name":   1,
		"count2": 0.5,
	}
	for k, v := range want {
		if got := st.GetState(k); !reflect.DeepEqual(got, v) {
			t.Errorf("GetState(%s) = %#v, want %#v", k, got, v)
		}
	}
}

func TestParseAssignment_IncrementNotNumber(t *testing.T) {
	_, _, err := ParseAssignment("count+=many")
	if err == nil {
		t.Fatal("ParseAssignment() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "increment must be a number") {
		t.Errorf("ParseAssignment() error = %v, want error containing 'increment must be a number'", err)
	}
}

func TestBuildUpdate_Order(t *testing.T) {
	u, err := BuildUpdate([]string{"z=1", "a=2", "m+=1"})
	if err != nil {
		t.Fatalf("BuildUpdate() error = %v", err)
	}

	want := []string{"z", "a", "m"}
	if got := u.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestBuildUpdate_Error(t *testing.T) {
	_, err := BuildUpdate([]string{"a=1", "oops"})
	if err == nil {
		t.Fatal("BuildUpdate() expected error, got nil")
	}
}

func TestDiff(t *testing.T) {
	previous := map[string]any{
		"same":    1,
		"changed": "old",
		"nested":  map[string]any{"x": 1},
		"removed": true,
		"wasNil":  nil,
	}
	next := map[string]any{
		"same":    1,
		"changed": "new",
		"nested":  map[string]any{"x": 2},
		"added":   []any{1},
	}

	u := Diff(previous, next)
	if u == nil {
		t.Fatal("Diff() = nil, want update")
	}

	want := []string{"added", "changed", "nested", "removed"}
	if got := u.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	st := tinystore.CreateStore(tinystore.State(previous))
	if err := st.SetState(u); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}
	if got := st.GetState("removed"); got != nil {
		t.Errorf("GetState(removed) = %v, want nil", got)
	}
	if got := st.GetState("changed"); got != "new" {
		t.Errorf("GetState(changed) = %v, want %v", got, "new")
	}
}

func TestDiff_NoChanges(t *testing.T) {
	state := map[string]any{"a": 1, "b": []any{"x"}}
	same := map[string]any{"a": 1, "b": []any{"x"}}

	if u := Diff(state, same); u != nil {
		t.Errorf("Diff() = %v keys, want nil", u.Keys())
	}
}
