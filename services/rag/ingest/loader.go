package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/observability"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/search"
)

// ingestConcurrency bounds how many documents embed in parallel. The
// embedding backend is the bottleneck; a small bound keeps it responsive.
const ingestConcurrency = 4

// Loader ingests course documents from a folder into the course store.
//
// # Description
//
// Each .txt document in the folder is parsed, chunked, and upserted.
// Documents whose course title is already indexed are skipped, so
// restarting the server never re-embeds an unchanged corpus. A document
// that fails to parse is logged and skipped; it never aborts the rest
// of the folder.
type Loader struct {
	store   *search.CourseStore
	chunker *Chunker
}

// NewLoader creates a Loader over the store and chunker.
func NewLoader(store *search.CourseStore, chunker *Chunker) *Loader {
	return &Loader{store: store, chunker: chunker}
}

// LoadFolder ingests every course document under dir. Returns how many
// courses were newly indexed. A missing folder is an error; an empty
// folder is not.
func (l *Loader) LoadFolder(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading docs folder: %w", err)
	}

	var mu sync.Mutex
	added := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for _, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		g.Go(func() error {
			indexed, err := l.LoadFile(ctx, path)
			if err != nil {
				// Infrastructure failures abort the batch; malformed
				// documents were already handled inside LoadFile.
				return err
			}
			if indexed {
				mu.Lock()
				added++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return added, err
	}
	slog.Info("Document folder loaded", "dir", dir, "new_courses", added)
	return added, nil
}

// LoadFile ingests one course document. Returns true when the course
// was newly indexed, false when it was skipped (already present, or
// malformed). Only infrastructure errors are returned.
func (l *Loader) LoadFile(ctx context.Context, path string) (bool, error) {
	doc, err := ParseCourseFile(path)
	if err != nil {
		if IsParseError(err) {
			slog.Warn("Skipping malformed course document", "path", path, "error", err)
			observability.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
			return false, nil
		}
		return false, err
	}

	exists, err := l.store.HasCourse(ctx, doc.Course.Title)
	if err != nil {
		return false, err
	}
	if exists {
		slog.Debug("Course already indexed, skipping", "title", doc.Course.Title, "path", path)
		observability.DocumentsIngestedTotal.WithLabelValues("skipped").Inc()
		return false, nil
	}

	chunks := l.chunker.ChunkCourse(doc)
	if err := l.store.UpsertCourse(ctx, &doc.Course, chunks); err != nil {
		return false, err
	}
	observability.DocumentsIngestedTotal.WithLabelValues("indexed").Inc()
	return true, nil
}

// Watch re-ingests documents as they change on disk. Events are
// debounced because editors emit bursts of writes for one save. Blocks
// until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating docs watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching docs folder: %w", err)
	}
	slog.Info("Watching docs folder for changes", "dir", dir)

	pending := make(map[string]struct{})
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isCourseDocument(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Docs watcher error", "error", err)
		case <-fire:
			for path := range pending {
				if _, err := l.reingest(ctx, path); err != nil {
					slog.Error("Failed to re-ingest changed document", "path", path, "error", err)
				}
			}
			pending = make(map[string]struct{})
		}
	}
}

// reingest forces a changed document back through ingestion, replacing
// whatever was indexed for its course before.
func (l *Loader) reingest(ctx context.Context, path string) (bool, error) {
	doc, err := ParseCourseFile(path)
	if err != nil {
		if IsParseError(err) {
			slog.Warn("Skipping malformed course document", "path", path, "error", err)
			observability.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
			return false, nil
		}
		return false, err
	}
	chunks := l.chunker.ChunkCourse(doc)
	if err := l.store.UpsertCourse(ctx, &doc.Course, chunks); err != nil {
		return false, err
	}
	observability.DocumentsIngestedTotal.WithLabelValues("indexed").Inc()
	slog.Info("Re-ingested changed document", "path", path, "title", doc.Course.Title)
	return true, nil
}

func isCourseDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
