package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// executeCmd runs the root command with args and returns captured stdout
// and any error.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// flag values persist between executions of the same command tree
	_ = getCmd.Flags().Set("format", formatYAML)
	_ = setCmd.Flags().Set("format", formatYAML)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	return out.String(), err
}

// writeSeed writes content to a seed file in a temp directory.
func writeSeed(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

const testSeed = `
name: session
state:
  user: alice
  count: 1
`

func TestVersion(t *testing.T) {
	output, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(output, "tinystore dev") {
		t.Errorf("output missing version, got: %s", output)
	}
}

func TestRunGet_AllKeys(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	output, err := executeCmd(t, "get", "-c", path)
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}

	want := "count: 1\nuser: alice\n"
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestRunGet_SelectedKeysJSON(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	output, err := executeCmd(t, "get", "-c", path, "user", "missing", "--format", "json")
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}

	want := "{\n  \"missing\": null,\n  \"user\": \"alice\"\n}\n"
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestRunGet_TOMLSeed(t *testing.T) {
	path := writeSeed(t, "seed.toml", "[state]\ncount = 7\n")

	output, err := executeCmd(t, "get", "-c", path)
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}
	if output != "count: 7\n" {
		t.Errorf("output = %q, want %q", output, "count: 7\n")
	}
}

func TestRunGet_InvalidFormat(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	_, err := executeCmd(t, "get", "-c", path, "--format", "xml")
	if err == nil {
		t.Fatal("get command expected error for invalid format, got nil")
	}
	if !strings.Contains(err.Error(), "--format must be") {
		t.Errorf("error should mention '--format must be', got: %v", err)
	}
}

func TestRunSet(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	output, err := executeCmd(t, "set", "-c", path, "count+=2", "user=bob", "extra=true")
	if err != nil {
		t.Fatalf("set command error = %v", err)
	}

	// the wildcard runs before key effects
	want := `extra: (unset) -> true
count: 1 -> 3
user: alice -> bob
---
count: 3
extra: true
user: bob
`
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}

	// seed file is untouched
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read seed file: %v", err)
	}
	if string(data) != testSeed {
		t.Errorf("seed file was modified: %s", data)
	}
}

func TestRunSet_InvalidAssignment(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	_, err := executeCmd(t, "set", "-c", path, "count")
	if err == nil {
		t.Fatal("set command expected error for invalid assignment, got nil")
	}
	if !strings.Contains(err.Error(), "key=value") {
		t.Errorf("error should mention 'key=value', got: %v", err)
	}
}

func TestRunSet_NoAssignments(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	if _, err := executeCmd(t, "set", "-c", path); err == nil {
		t.Fatal("set command expected error without assignments, got nil")
	}
}

func TestRunValidate_ValidSeed(t *testing.T) {
	path := writeSeed(t, "seed.yaml", `
name: session
log_level: debug
recover_panics: true
state:
  a: 1
  b: two
`)

	output, err := executeCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Seed is valid!",
		"Name:           session",
		"Log level:      DEBUG",
		"Recover panics: true",
		"Keys:           2",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidSeed(t *testing.T) {
	path := writeSeed(t, "seed.yaml", `
state:
  all: 1
`)

	_, err := executeCmd(t, "validate", "-c", path)
	if err == nil {
		t.Fatal("validate command expected error for invalid seed, got nil")
	}
	if !strings.Contains(err.Error(), "reserved") {
		t.Errorf("error should mention 'reserved', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeCmd(t, "validate", "-c", "/nonexistent/path/seed.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch(t *testing.T) {
	path := writeSeed(t, "seed.yaml", testSeed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"watch", "-c", path})
	watchCmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- rootCmd.ExecuteContext(ctx)
	}()

	// give the watcher time to register before writing
	time.Sleep(200 * time.Millisecond)
	updated := `
name: session
state:
  count: 2
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to rewrite seed file: %v", err)
	}

	want := "count: 1 -> 2\nuser: alice -> <nil>\n"
	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), want) {
		select {
		case <-deadline:
			t.Fatalf("output = %q, want it to contain %q", out.String(), want)
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch command error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch command did not return after context cancel")
	}
}
