package confwatch

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gfx.cafe/gfx/regat/lib/reg/config"
	"gfx.cafe/gfx/regat/lib/util/ini"
)

type Options struct {
	// Path is the properties file to watch. The file may not exist yet;
	// the overlay stays empty until it does.
	Path string

	// Debounce collapses a burst of file events into one reload.
	Debounce time.Duration

	// Base is the client configuration the properties overlay.
	Base config.ClientProvider

	Logger *zap.Logger
}

// Watcher keeps a properties overlay current with its backing file. It is a
// config.ClientProvider: reads see the base config with the latest
// recognized properties applied.
//
// The containing directory is watched rather than the file, so editors that
// replace the file keep being seen.
type Watcher struct {
	path     string
	debounce time.Duration
	base     config.ClientProvider
	log      *zap.Logger

	props atomic.Pointer[map[string]string]

	mu        sync.Mutex
	listeners []Listener

	fs        *fsnotify.Watcher
	closed    chan struct{}
	closeOnce sync.Once
}

func NewWatcher(options Options) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	base := options.Base
	if base == nil {
		base = config.StaticClient(config.ClientConfig{})
	}
	debounce := options.Debounce
	if debounce == 0 {
		debounce = time.Second
	}
	log := options.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Watcher{
		path:     options.Path,
		debounce: debounce,
		base:     base,
		log:      log,
		fs:       fs,
		closed:   make(chan struct{}),
	}, nil
}

// ClientConfig returns the base config with the current overlay applied.
func (T *Watcher) ClientConfig() config.ClientConfig {
	client := T.base.ClientConfig()
	if props := T.props.Load(); props != nil {
		client = client.Overlay(*props)
	}
	return client
}

// Subscribe registers listener for subsequent change events.
func (T *Watcher) Subscribe(listener Listener) {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.listeners = append(T.listeners, listener)
}

// Start loads the file once without notifying, then begins watching.
func (T *Watcher) Start() error {
	if data, err := os.ReadFile(T.path); err == nil {
		props := make(map[string]string)
		if err := ini.Unmarshal(data, &props); err != nil {
			T.log.Warn("parsing properties",
				zap.String("path", T.path),
				zap.Error(err),
			)
		} else {
			T.props.Store(&props)
		}
	}

	if err := T.fs.Add(filepath.Dir(T.path)); err != nil {
		return err
	}
	go T.loop()
	return nil
}

func (T *Watcher) Stop() error {
	T.closeOnce.Do(func() {
		close(T.closed)
	})
	return T.fs.Close()
}

func (T *Watcher) loop() {
	var timer *time.Timer
	var pending bool

	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}
		return timer.C
	}

	for {
		select {
		case event, ok := <-T.fs.Events:
			if !ok {
				return
			}
			if !T.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(T.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(T.debounce)
			}
			pending = true

		case <-timerC():
			if pending {
				pending = false
				T.reload()
			}

		case err, ok := <-T.fs.Errors:
			if !ok {
				return
			}
			T.log.Warn("watching properties", zap.Error(err))

		case <-T.closed:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (T *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(T.path)
}

func (T *Watcher) reload() {
	data, err := os.ReadFile(T.path)
	if err != nil {
		T.log.Warn("reading properties",
			zap.String("path", T.path),
			zap.Error(err),
		)
		return
	}
	props := make(map[string]string)
	if err := ini.Unmarshal(data, &props); err != nil {
		T.log.Warn("parsing properties",
			zap.String("path", T.path),
			zap.Error(err),
		)
		return
	}
	T.apply(props)
}

// apply publishes props and notifies listeners of the key diff.
func (T *Watcher) apply(props map[string]string) {
	var old map[string]string
	if p := T.props.Swap(&props); p != nil {
		old = *p
	}

	keys := diffKeys(old, props)
	T.log.Info("configuration changed", zap.Strings("keys", keys))

	T.mu.Lock()
	listeners := append([]Listener(nil), T.listeners...)
	T.mu.Unlock()

	event := ChangeEvent{Keys: keys}
	for _, listener := range listeners {
		listener.HandleConfigChange(event)
	}
}

// diffKeys returns the sorted keys that differ between the two property
// sets. The result is non-nil even when nothing differs.
func diffKeys(old, next map[string]string) []string {
	keys := make([]string, 0)
	for key, value := range next {
		if prev, ok := old[key]; !ok || prev != value {
			keys = append(keys, key)
		}
	}
	for key := range old {
		if _, ok := next[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ config.ClientProvider = (*Watcher)(nil)
