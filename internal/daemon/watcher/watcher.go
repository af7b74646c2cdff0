// Package watcher reloads queued configuration when its files change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches config directories and calls onChange once per burst of
// writes to a config file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(file string)
	logger   *logrus.Entry

	mu           sync.Mutex
	timer        *time.Timer
	pending      string
	targetToLink map[string]string
}

// New watches the directories holding files. Symlinked files also have
// their target directory watched, since fsnotify does not follow links.
func New(files []string, debounce time.Duration, onChange func(file string), logger *logrus.Entry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:      fw,
		debounce:     debounce,
		onChange:     onChange,
		logger:       logger,
		targetToLink: make(map[string]string),
	}

	watched := make(map[string]bool)
	watch := func(dir string) error {
		if watched[dir] {
			return nil
		}
		if err := fw.Add(dir); err != nil {
			return err
		}
		watched[dir] = true
		return nil
	}

	for _, file := range files {
		if err := watch(filepath.Dir(file)); err != nil {
			fw.Close()
			return nil, err
		}
		info, err := os.Lstat(file)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target, err := filepath.EvalSymlinks(file)
		if err != nil {
			logger.WithError(err).Warnf("Failed to resolve symlink %s", file)
			continue
		}
		w.targetToLink[target] = file
		if err := watch(filepath.Dir(target)); err != nil {
			logger.WithError(err).Warnf("Failed to watch symlink target dir %s", filepath.Dir(target))
		}
	}

	return w, nil
}

// Start processes file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.stopTimer()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !IsConfigFile(event.Name) {
				continue
			}
			name := event.Name
			if link, ok := w.targetToLink[name]; ok {
				name = link
			}
			w.schedule(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

// schedule restarts the debounce timer; the last file written wins.
func (w *Watcher) schedule(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = file
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	file := w.pending
	w.pending = ""
	w.timer = nil
	w.mu.Unlock()

	if file == "" {
		return
	}
	w.logger.Infof("Config changed: %s", filepath.Base(file))
	if w.onChange != nil {
		w.onChange(file)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// IsConfigFile reports whether name looks like a queued config file.
func IsConfigFile(name string) bool {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, "queued.") {
		return false
	}
	switch filepath.Ext(base) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}
