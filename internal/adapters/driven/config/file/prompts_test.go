package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-labs/aula-cli/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	// Skip if we can't determine home dir
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".aula", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Load triggers lazy init
	_, err = store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	// Check files were created
	files := []string{
		"answer_system.txt",
		"fallback_system.txt",
		"summarise.txt",
		"README.md",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	for name, want := range defaultPrompts {
		got, err := store.Load(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "prompt %s", name)
	}
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")
	assert.Error(t, err)
}

func TestPromptStore_Load_CustomisedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// First load creates the defaults.
	_, err = store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)

	// Edit the file on disk and clear the cache.
	custom := "Custom system prompt."
	path := filepath.Join(dir, driven.PromptAnswerSystem+".txt")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0600))
	store.Reload()

	got, err := store.Load(driven.PromptAnswerSystem)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestPromptStore_Load_CachesResult(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)

	// Overwrite the file; without Reload the cached value wins.
	path := filepath.Join(dir, driven.PromptSummarise+".txt")
	require.NoError(t, os.WriteFile(path, []byte("changed"), 0600))

	second, err := store.Load(driven.PromptSummarise)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Load(driven.PromptAnswerSystem)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestPromptStore_WatchAndClose(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Watch())
	require.NoError(t, store.Close())
}
