package archive

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/racesim-core-go/log"
)

// Watch invalidates derived artifacts when the archive file changes on
// disk. The onChange callback receives the changed path; callers
// typically clear their caches there so the next request reloads.
type Watch struct {
	ctx      context.Context
	path     string
	onChange func(path string)
	l        *log.Logger
}

func NewWatch(ctx context.Context, path string, onChange func(string)) *Watch {
	return &Watch{
		ctx:      ctx,
		path:     path,
		onChange: onChange,
		l:        log.GetFromContext(ctx).Named("archive.watch"),
	}
}

// Start registers the file with fsnotify and runs the event loop until
// the context is done.
func (w *Watch) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}
	w.l.Debug("watching archive", log.String("file", w.path))
	go w.run(watcher)
	return nil
}

func (w *Watch) run(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-w.ctx.Done():
			w.l.Info("context done, stopping archive watch")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				w.l.Info("watcher events channel closed, stopping archive watch")
				return
			}
			w.l.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Chmod == fsnotify.Chmod {

				w.l.Info("archive changed, invalidating",
					log.String("file", event.Name))
				w.onChange(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				w.l.Info("watcher errors channel closed, stopping archive watch")
				return
			}
			w.l.Error("watcher error", log.ErrorField(err))
		}
	}
}
