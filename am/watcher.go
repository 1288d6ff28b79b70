package am

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

const (
	defaultDebounce = 500 * time.Millisecond

	// ownWriteWindow covers the burst of events a single SetValue produces
	// (truncate, write, chmod on some platforms).
	ownWriteWindow = time.Second
)

// ReloadCallback receives every successfully reloaded and validated config.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the configuration when its file changes.
//
// The parent directory is watched rather than the file so that editors which
// save by rename, and files created after startup, are both picked up.
type ConfigWatcher struct {
	configPath     string
	fileName       string
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	pending   *time.Timer

	// ignoreUntil is a unix-nano deadline; events before it are our own writes
	ignoreUntil atomic.Int64

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher prepares a watcher for configPath. Call Start to begin.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", configPath)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch config directory for %s", abs)
	}

	return &ConfigWatcher{
		configPath:     abs,
		fileName:       filepath.Base(abs),
		watcher:        w,
		debouncePeriod: defaultDebounce,
		done:           make(chan struct{}),
	}, nil
}

// OnReload registers fn. Callbacks run in registration order.
func (cw *ConfigWatcher) OnReload(fn ReloadCallback) {
	cw.mu.Lock()
	cw.callbacks = append(cw.callbacks, fn)
	cw.mu.Unlock()
}

// MarkOwnWrite suppresses reloads caused by a write this process is about
// to make.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ignoreUntil.Store(time.Now().Add(ownWriteWindow).UnixNano())
}

func (cw *ConfigWatcher) isOwnWrite() bool {
	return time.Now().UnixNano() < cw.ignoreUntil.Load()
}

// Start runs the event loop in the background until Stop.
func (cw *ConfigWatcher) Start() {
	if cw.started.Swap(true) {
		return
	}
	go cw.run()
}

func (cw *ConfigWatcher) run() {
	defer close(cw.done)
	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handle(ev)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

func (cw *ConfigWatcher) handle(ev fsnotify.Event) {
	if filepath.Base(ev.Name) != cw.fileName || isBackupFile(ev.Name) {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	if cw.isOwnWrite() {
		logger.Debugw("Config watcher ignoring own write", logger.FieldPath, ev.Name)
		return
	}
	logger.Infow("Config change detected", logger.FieldPath, ev.Name, logger.FieldOperation, ev.Op.String())
	cw.schedule()
}

// schedule coalesces a burst of events into one reload.
func (cw *ConfigWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.pending != nil {
		cw.pending.Stop()
	}
	cw.pending = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed, keeping previous settings", logger.FieldError, err)
		}
	})
}

// reload drops the cached config, loads and validates a fresh one, then
// hands it to every callback. An invalid file never reaches the callbacks.
func (cw *ConfigWatcher) reload() error {
	Reset()
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "reloaded config is invalid")
	}
	logger.Infow("Config reloaded", logger.FieldPath, cw.configPath)

	cw.mu.Lock()
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	for _, fn := range callbacks {
		if err := fn(cfg); err != nil {
			logger.Warnw("Config reload callback failed", logger.FieldError, err)
		}
	}
	return nil
}

// Stop ends watching and waits for the event loop to exit. A reload that is
// still pending is cancelled. Safe to call more than once.
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		cw.mu.Lock()
		if cw.pending != nil {
			cw.pending.Stop()
		}
		cw.mu.Unlock()

		err = cw.watcher.Close()
		if cw.started.Load() {
			<-cw.done
		}
	})
	return err
}

// isBackupFile reports whether path is one of the rotated .backN copies.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	n := strings.TrimPrefix(ext, ".back")
	return n != ext && len(n) == 1 && n[0] >= '1' && n[0] <= '9'
}

// SetGlobalWatcher registers the watcher that SetValue notifies before it
// writes. Pass nil to clear it.
func SetGlobalWatcher(cw *ConfigWatcher) {
	globalWatcherMu.Lock()
	globalWatcher = cw
	globalWatcherMu.Unlock()
}

// GetGlobalWatcher returns the registered watcher, if any.
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
