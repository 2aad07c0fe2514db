package history

import (
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	chat := NewChat("support", "test/model")
	chat.Append("user", "hello")
	chat.Append("assistant", "hi there")

	if err := store.Save(chat); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("support")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Name != "support" || loaded.Model != "test/model" {
		t.Errorf("Unexpected chat identity: %+v", loaded)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != "user" || loaded.Messages[0].Content != "hello" {
		t.Errorf("Unexpected first message: %+v", loaded.Messages[0])
	}
	if loaded.Messages[1].Role != "assistant" {
		t.Errorf("Unexpected second message role: %s", loaded.Messages[1].Role)
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.Load("nope"); err == nil {
		t.Error("Expected error for missing chat")
	}
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save(NewChat("gone", "")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !store.Exists("gone") {
		t.Fatal("Chat should exist after save")
	}
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("gone") {
		t.Error("Chat should not exist after delete")
	}
	if err := store.Delete("gone"); err == nil {
		t.Error("Expected error deleting missing chat")
	}
}

func TestListOrder(t *testing.T) {
	store := NewStore(t.TempDir())

	older := NewChat("older", "")
	if err := store.Save(older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	newer := NewChat("newer", "")
	if err := store.Save(newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("Expected 2 chats, got %d", len(metas))
	}
	if metas[0].Name != "newer" {
		t.Errorf("Expected newest first, got %s", metas[0].Name)
	}
}

func TestListEmptyDir(t *testing.T) {
	store := NewStore(t.TempDir() + "/missing")

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("Expected no chats, got %d", len(metas))
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"support", "My Chat", "chat-1", "a.b_c"}
	invalid := []string{"", "../../etc/passwd", ".hidden", "a/b", "name\x00"}

	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("Expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("Expected %q to be invalid", name)
		}
	}
}

func TestSaveRejectsBadName(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save(NewChat("../escape", "")); err == nil {
		t.Error("Expected error for path traversal name")
	}
}
