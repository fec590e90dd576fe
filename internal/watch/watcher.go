package watch

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/config"
)

// ChatSink receives chats parsed from exported transcript files.
type ChatSink interface {
	UpsertChat(ctx context.Context, chat analytics.ChatRecord) error
}

// Watcher monitors WATCH_DIR for dropped chat-export JSON files and loads
// them into the chat store. A file may hold one chat object or an array.
type Watcher struct {
	cfg  config.Config
	sink ChatSink
}

func New(cfg config.Config, sink ChatSink) *Watcher {
	return &Watcher{cfg: cfg, sink: sink}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) != 0 && isExport(evt.Name) {
					if err := w.Ingest(ctx, evt.Name); err != nil {
						log.Printf("ingest %s: %v", evt.Name, err)
					}
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.WatchDir)
}

// Ingest parses one export file and upserts every chat it contains.
func (w *Watcher) Ingest(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chats, err := decodeExport(data)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		if chat.ID == "" {
			log.Printf("ingest %s: skipping chat without id", path)
			continue
		}
		if err := w.sink.UpsertChat(ctx, chat); err != nil {
			return err
		}
	}
	log.Printf("ingested %d chats from %s", len(chats), filepath.Base(path))
	return nil
}

// Backfill ingests every export file already present in the watch dir.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.cfg.WatchDir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !isExport(e) {
			continue
		}
		if err := w.Ingest(ctx, e); err != nil {
			log.Printf("backfill %s: %v", e, err)
		}
	}
	return nil
}

func isExport(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

func decodeExport(data []byte) ([]analytics.ChatRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var chats []analytics.ChatRecord
		if err := json.Unmarshal(data, &chats); err != nil {
			return nil, err
		}
		return chats, nil
	}
	var chat analytics.ChatRecord
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, err
	}
	return []analytics.ChatRecord{chat}, nil
}
