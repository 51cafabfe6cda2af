package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/vectorstore"
)

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLoader(t *testing.T) (*Loader, *search.CourseStore) {
	t.Helper()
	store := search.NewCourseStore(vectorstore.NewMemoryIndex(), vectorstore.NewMemoryIndex(),
		constEmbedder{}, 5, 0.5)
	return NewLoader(store, NewChunker(800, 100)), store
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course1.txt", "Course Title: Testing 101\n\nLesson 0: Intro\nTesting content here.\n")
	writeDoc(t, dir, "course2.txt", "Course Title: Go Basics\n\nLesson 0: Setup\nInstall Go first.\n")
	writeDoc(t, dir, "notes.json", `{"ignored": true}`)
	writeDoc(t, dir, ".hidden.txt", "Course Title: Hidden\n")

	loader, store := newLoader(t)
	added, err := loader.LoadFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	titles, err := store.ListCourseTitles(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Testing 101", "Go Basics"}, titles)
}

func TestLoadFolderSkipsAlreadyIngested(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "course1.txt", "Course Title: Testing 101\n\nLesson 0: Intro\nTesting content here.\n")

	loader, _ := newLoader(t)
	added, err := loader.LoadFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = loader.LoadFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestLoadFolderSkipsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "broken.txt", "No title line at all.\n")
	writeDoc(t, dir, "good.txt", "Course Title: Fine Course\n\nLesson 0: OK\nBody.\n")

	loader, store := newLoader(t)
	added, err := loader.LoadFolder(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	titles, err := store.ListCourseTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fine Course"}, titles)
}

func TestLoadFolderMissingDir(t *testing.T) {
	loader, _ := newLoader(t)
	_, err := loader.LoadFolder(context.Background(), "/does/not/exist")
	assert.Error(t, err)
}

func TestLoadFileReturnsWhetherIndexed(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "course.txt", "Course Title: Once Only\n\nLesson 0: A\nText.\n")

	loader, _ := newLoader(t)
	indexed, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, indexed)

	indexed, err = loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, indexed)
}
