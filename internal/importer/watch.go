package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// Watch imports dir once, then re-imports changed dump files until ctx is
// cancelled. Bursts of events are collapsed by debounce.
func (im *Importer) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if _, err := im.ImportPaths(ctx, []string{dir}, nil); err != nil {
		im.logger.Error("initial import failed", "dir", dir, "error", err)
	}
	im.logger.Info("watching for content changes", "dir", dir, "debounce", debounce)

	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
		flush   func()
	)
	schedule := func(files ...string) {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range files {
			pending[f] = true
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, flush)
	}
	flush = func() {
		mu.Lock()
		files := make([]string, 0, len(pending))
		for f := range pending {
			files = append(files, f)
		}
		pending = make(map[string]bool)
		mu.Unlock()
		if len(files) == 0 {
			return
		}
		sort.Strings(files)

		_, err := im.ImportFiles(ctx, files, nil)
		switch {
		case errors.Is(err, ErrImportInProgress):
			schedule(files...)
		case err != nil:
			im.logger.Error("re-import failed", "files", files, "error", err)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !Supported(event.Name) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			im.logger.Warn("watch error", "error", err)
		}
	}
}
