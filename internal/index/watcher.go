package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/menuboard/internal/checksum"
	"github.com/starford/menuboard/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted"; id is the template id.
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the library root and processes
// template file changes until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// Only <id>.json files directly under the root are templates; the assets/
// directory and temp files from atomic writes are ignored. Rename events
// trigger a debounced reconciliation pass against the directory listing.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind, id string) {
		if cb != nil {
			cb(kind, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != filepath.Clean(root) {
				continue
			}
			id := storage.TemplateID(ev.Name)
			if id == "" {
				continue
			}
			rel := storage.TemplatePath(id)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				var mod time.Time
				if info, statErr := os.Stat(ev.Name); statErr == nil {
					mod = info.ModTime()
				}
				known, _ := db.GetChecksum(id)
				if known == checksum.Sum(data) {
					// Already indexed by the writer (templateservice).
					continue
				}
				if idxErr := IndexFile(db, id, rel, data, mod); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if known == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, id)

			case ev.Op&fsnotify.Remove != 0:
				if known, _ := db.GetChecksum(id); known == "" {
					continue
				}
				if delErr := db.DeleteTemplate(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				notify("deleted", id)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new name
				// arrives as a Create. Drop the old entry now and reconcile
				// shortly after to catch stragglers.
				if delErr := db.DeleteTemplate(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					notify("deleted", id)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries whose files are gone and indexes files
// the index does not know yet.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	paths := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.ID] = m.Checksum
		paths[m.ID] = m.Path
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := db.DeleteTemplate(id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("id", id))
				if cb != nil {
					cb("deleted", id)
				}
			}
		}
	}

	for id, cs := range disk {
		if checksums[id] == cs {
			continue
		}
		data, readErr := store.Read(paths[id])
		if readErr != nil {
			continue
		}
		if idxErr := IndexFile(db, id, paths[id], data, time.Time{}); idxErr == nil {
			logger.Debug("reconcile: indexed", slog.String("id", id))
			if cb != nil {
				cb("created", id)
			}
		}
	}
}
