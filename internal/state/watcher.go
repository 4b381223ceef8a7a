package state

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when its backing file changes. The parent
// directory is watched so that editors replacing the file via rename are
// picked up too. Bursts of events are coalesced into one reload.
type Watcher struct {
	store    *Store
	target   string
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	target, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		store:    store,
		target:   target,
		debounce: debounce,
		fsw:      fsw,
	}, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	log.Printf("[Watcher] Watching %s", w.target)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Watcher] Error: %v", err)

		case <-fire:
			fire = nil
			if err := w.store.Reload(); err != nil {
				log.Printf("[Watcher] Reload failed: %v", err)
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name, err := filepath.Abs(ev.Name)
	if err != nil || name != w.target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
