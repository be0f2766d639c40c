package prescription

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written or replaced and passes every
// valid prescription to fn. Files that fail to load are reported to onErr,
// which may be nil, and otherwise ignored. The containing directory is
// watched so that editors that save by rename are seen. Watch blocks until
// ctx is done.
func Watch(ctx context.Context, path string, fn func(*Prescription), onErr func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("prescription: %w", err)
	}
	if _, err := FormatFromPath(abs); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prescription: watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("prescription: watch %s: %w", filepath.Dir(abs), err)
	}

	report := func(err error) {
		if onErr != nil {
			onErr(err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p, err := LoadFile(abs)
			if err != nil {
				report(err)
				continue
			}
			fn(p)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(fmt.Errorf("prescription: watcher: %w", err))
		}
	}
}
