package docstore

import (
	"context"
	"sync"
)

type readFunc func(ctx context.Context, path string) (Snapshot, error)

// watchHub fans change signals out to subscribers of a path. Each subscriber
// re-reads the document when signalled, so bursts of writes coalesce into a
// single snapshot of the latest state.
type watchHub struct {
	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]*watcher
}

type watcher struct {
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newWatchHub() *watchHub {
	return &watchHub{watchers: make(map[string]map[int]*watcher)}
}

func (h *watchHub) watch(ctx context.Context, path string, read readFunc, onChange func(Snapshot), onError func(error)) func() {
	w := &watcher{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	w.signal <- struct{}{}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.watchers[path] == nil {
		h.watchers[path] = make(map[int]*watcher)
	}
	h.watchers[path][id] = w
	h.mu.Unlock()

	stop := func() {
		w.once.Do(func() {
			close(w.done)
			h.mu.Lock()
			delete(h.watchers[path], id)
			if len(h.watchers[path]) == 0 {
				delete(h.watchers, path)
			}
			h.mu.Unlock()
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-w.signal:
			}

			snap, err := read(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if onError != nil {
					onError(err)
				}
				continue
			}

			select {
			case <-w.done:
				return
			default:
			}
			onChange(snap)
		}
	}()

	return stop
}

// changed signals every subscriber of path.
func (h *watchHub) changed(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers[path] {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}
