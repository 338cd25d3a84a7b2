package reload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/skim/pkg/rules"
)

// DefaultDebounce is the quiet period after the last change before rules are reloaded.
const DefaultDebounce = 250 * time.Millisecond

// Reloader rebuilds the active rule set from settings.
type Reloader interface {
	Reload(settings rules.Settings) error
}

// Options configures a Watcher.
type Options struct {
	Debounce  time.Duration
	Recursive bool
	// OnReload is called after every reload with its aggregated load error.
	OnReload func(err error)
}

// Watcher reloads rules when rule files under the custom rules directory change.
type Watcher struct {
	target   Reloader
	settings rules.Settings
	opts     Options
	fsw      *fsnotify.Watcher
	logger   hclog.Logger

	stopOnce sync.Once
}

// New creates a Watcher over settings.CustomRulesPath. The directory must exist.
func New(target Reloader, settings rules.Settings, opts Options, logger hclog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if settings.CustomRulesPath == "" {
		return nil, fmt.Errorf("custom rules path is not set")
	}

	info, err := os.Stat(settings.CustomRulesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to watch %q: %w", settings.CustomRulesPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("unable to watch %q: not a directory", settings.CustomRulesPath)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		target:   target,
		settings: settings,
		opts:     opts,
		fsw:      fsw,
		logger:   logger,
	}
	if err := w.add(settings.CustomRulesPath); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching custom rules", "path", w.settings.CustomRulesPath, "debounce", w.opts.Debounce)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("rule change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timerC:
			timerC = nil
			w.reload()
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) reload() {
	err := w.target.Reload(w.settings)
	if err != nil {
		w.logger.Warn("rules reloaded with errors", "error", err)
	} else {
		w.logger.Info("rules reloaded")
	}
	if w.opts.OnReload != nil {
		w.opts.OnReload(err)
	}
}

// relevant reports whether event affects rule files. New directories are
// added to the watch list when watching recursively.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return true
	}
	if event.Has(fsnotify.Create) && w.opts.Recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	// a removed or renamed directory may have held rule files
	return w.opts.Recursive && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename))
}

func (w *Watcher) add(root string) error {
	if !w.opts.Recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("unable to watch %q: %w", path, err)
		}
		return nil
	})
}
