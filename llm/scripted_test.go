package llm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestScriptedBackendReplaysInOrder(t *testing.T) {
	backend := NewScriptedBackend("first", "second")

	resp, err := backend.Send(context.Background(), []Message{UserMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "first" {
		t.Errorf("expected %q, got %q", "first", resp)
	}

	resp, err = backend.Send(context.Background(), []Message{UserMessage("again")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "second" {
		t.Errorf("expected %q, got %q", "second", resp)
	}
	if backend.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", backend.Remaining())
	}
}

func TestScriptedBackendExhaustion(t *testing.T) {
	backend := NewScriptedBackend("only")
	if _, err := backend.Send(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := backend.Send(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after script exhaustion")
	}
	if _, ok := err.(*ScriptExhaustedError); !ok {
		t.Errorf("expected ScriptExhaustedError, got %T", err)
	}
}

func TestScriptedBackendRecordsCalls(t *testing.T) {
	backend := NewScriptedBackend("a", "b")

	_, _ = backend.Send(context.Background(), []Message{SystemMessage("sys"), UserMessage("one")})
	_, _ = backend.Send(context.Background(), []Message{UserMessage("two")})

	calls := backend.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(calls))
	}
	if calls[0][0].Role != RoleSystem || calls[0][1].Content != "one" {
		t.Errorf("first call recorded incorrectly: %+v", calls[0])
	}
	if calls[1][0].Content != "two" {
		t.Errorf("second call recorded incorrectly: %+v", calls[1])
	}
}

func TestScriptedBackendFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")
	if err := os.WriteFile(path, []byte(`["hello", "goodbye"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	backend, err := ScriptedBackendFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := backend.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "hello" {
		t.Errorf("expected %q, got %q", "hello", resp)
	}
}

func TestScriptedBackendFromFileRejectsNonList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ScriptedBackendFromFile(path); err == nil {
		t.Fatal("expected error for non-list responses file")
	}
}
