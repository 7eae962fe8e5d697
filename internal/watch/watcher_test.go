package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) record(files []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, files)
	return nil
}

func (r *recorder) files() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, b := range r.batches {
		for _, f := range b {
			seen[filepath.Base(f)] = true
		}
	}
	return seen
}

func TestFileWatcher_Start(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "shop.go")
	if err := os.WriteFile(testFile, []byte("package shop\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "vendor"), 0755); err != nil {
		t.Fatalf("Failed to create vendor dir: %v", err)
	}

	var rec recorder
	watcher, err := NewFileWatcher(Options{
		Root:     tmpDir,
		SkipDirs: []string{"vendor"},
		Debounce: 50 * time.Millisecond,
	}, rec.record)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	time.Sleep(100 * time.Millisecond) // Allow watcher to initialize
	if err := os.WriteFile(testFile, []byte("package shop\n\ntype Order struct{}\n"), 0644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "vendor", "v.go"), []byte("package v\n"), 0644); err != nil {
		t.Fatalf("Failed to write vendored file: %v", err)
	}

	time.Sleep(300 * time.Millisecond)

	seen := rec.files()
	if !seen["shop.go"] {
		t.Error("Expected shop.go change to be detected")
	}
	if seen["notes.txt"] {
		t.Error("notes.txt does not match the watch patterns")
	}
	if seen["v.go"] {
		t.Error("vendor directory should not be watched")
	}
}

func TestFileWatcher_RemovedFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "old.go")
	if err := os.WriteFile(testFile, []byte("package shop\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var rec recorder
	watcher, err := NewFileWatcher(Options{Root: tmpDir, Debounce: 50 * time.Millisecond}, rec.record)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Stop()
	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := os.Remove(testFile); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if !rec.files()["old.go"] {
		t.Error("Expected removal to be reported")
	}
}

func TestDebouncer_Add(t *testing.T) {
	var mu sync.Mutex
	var calls int
	var files []string

	debouncer := NewDebouncer(50 * time.Millisecond)
	debouncer.SetCallback(func(f []string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		files = f
	})

	debouncer.Add("b.go")
	debouncer.Add("a.go")
	debouncer.Add("b.go") // Duplicate

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if calls != 1 {
		t.Fatalf("Expected 1 callback call, got %d", calls)
	}
	if len(files) != 2 || files[0] != "a.go" || files[1] != "b.go" {
		t.Errorf("Expected sorted unique files [a.go b.go], got %v", files)
	}
}

func TestDebouncer_MultipleFlushes(t *testing.T) {
	var mu sync.Mutex
	var callCount int

	debouncer := NewDebouncer(30 * time.Millisecond)
	debouncer.SetCallback(func(f []string) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
	})

	debouncer.Add("file1.go")
	time.Sleep(80 * time.Millisecond)

	debouncer.Add("file2.go")
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if callCount != 2 {
		t.Errorf("Expected 2 callback calls, got %d", callCount)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	var mu sync.Mutex
	var called bool

	debouncer := NewDebouncer(30 * time.Millisecond)
	debouncer.SetCallback(func([]string) {
		mu.Lock()
		defer mu.Unlock()
		called = true
	})

	debouncer.Add("file.go")
	debouncer.Stop()
	debouncer.Add("late.go")
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("Expected no callback after Stop")
	}
}

func TestFileWatcher_ShouldIgnore(t *testing.T) {
	watcher := &FileWatcher{}

	tests := []struct {
		path     string
		expected bool
	}{
		{"shop.go", false},
		{"shop.go~", true},
		{".shop.go.swp", true},
		{".DS_Store", true},
		{"dir/normal.go", false},
	}

	for _, tt := range tests {
		result := watcher.shouldIgnore(tt.path)
		if result != tt.expected {
			t.Errorf("shouldIgnore(%q) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestFileWatcher_MatchesPattern(t *testing.T) {
	tests := []struct {
		patterns []string
		path     string
		expected bool
	}{
		{DefaultPatterns, "shop.go", true},
		{DefaultPatterns, "dir/go.mod", true},
		{DefaultPatterns, "schema.sql", false},
		{[]string{"*.go", "*.tmpl"}, "page.tmpl", true},
		{[]string{}, "anything.txt", true}, // No patterns = match all
	}

	for _, tt := range tests {
		watcher := &FileWatcher{patterns: tt.patterns}
		result := watcher.matchesPattern(tt.path)
		if result != tt.expected {
			t.Errorf("matchesPattern(%v, %q) = %v, expected %v",
				tt.patterns, tt.path, result, tt.expected)
		}
	}
}

func TestFileWatcher_Stop(t *testing.T) {
	watcher, err := NewFileWatcher(Options{Root: t.TempDir()}, func(files []string) error { return nil })
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}

	if err := watcher.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop() returned error: %v", err)
	}
}

func BenchmarkDebouncer_Add(b *testing.B) {
	debouncer := NewDebouncer(100 * time.Millisecond)
	debouncer.SetCallback(func(files []string) {})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		debouncer.Add("file.go")
	}
}
