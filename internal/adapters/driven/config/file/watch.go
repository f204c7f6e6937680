package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/didact-labs/didact/internal/logger"
)

// watchDebounce coalesces the burst of events a single editor save produces.
const watchDebounce = 100 * time.Millisecond

// Watch calls onChange after prompt files in the store directory are
// created, edited, renamed or removed. Bursts of events within the debounce
// window produce one call. Watching stops when ctx is done.
//
// onChange should call Reload before loading prompts again.
func (s *PromptStore) Watch(ctx context.Context, onChange func()) error {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return s.initErr
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := w.Add(s.promptDir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", s.promptDir, err)
	}

	logger.Debug("Watching prompts in %s", s.promptDir)
	go watchLoop(ctx, w, onChange)
	return nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func()) {
	defer func() { _ = w.Close() }()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !isPromptEvent(event) {
				continue
			}
			logger.Debug("Prompt file changed: %s (%s)", filepath.Base(event.Name), event.Op)
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, onChange)
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("prompt watcher: %v", err)
		}
	}
}

func isPromptEvent(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != promptExt {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
