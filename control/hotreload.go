// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Watches a JSON config file and pushes every valid revision into a
// ConfigStore.

package control

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a config file on change.
type Watcher struct {
	path  string
	store *ConfigStore
	log   logrus.FieldLogger
	w     *fsnotify.Watcher
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// WatchConfig starts watching path. The parent directory is watched so that
// editors replacing the file through a rename are seen as well.
func WatchConfig(path string, store *ConfigStore, log logrus.FieldLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	w := &Watcher{
		path:  abs,
		store: store,
		log:   log.WithField("config", abs),
		w:     fw,
		stop:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		// Partial writes show up as decode errors; the next event retries.
		w.log.WithError(err).Debug("config reload skipped")
		return
	}
	w.log.Info("config reloaded")
	w.store.SetConfig(cfg)
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.w.Close()
		w.wg.Wait()
	})
	return err
}
