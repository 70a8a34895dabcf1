package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJsonlJournalAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	journal := NewJsonlJournal(path)

	first := Entry{
		Time:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Op:       "position.Open",
		TxHashes: []string{"0xabc"},
	}
	second := Entry{
		Time:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		Op:    "position.Withdraw",
		Error: "position 42 has zero liquidity",
	}
	if err := journal.Append(first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := journal.Append(second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshal line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Op != "position.Open" || len(entries[0].TxHashes) != 1 {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[1].Op != "position.Withdraw" || entries[1].Error == "" {
		t.Fatalf("second entry: %+v", entries[1])
	}
	if !entries[0].Time.Equal(first.Time) {
		t.Fatalf("time round trip: got %s, want %s", entries[0].Time, first.Time)
	}
}
