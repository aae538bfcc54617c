package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/carbonarchive/carbon/internal/carbonlog"
	"github.com/carbonarchive/carbon/internal/converter"
)

// watchCmd re-opens a local JSON source file and re-runs the convert
// pipeline whenever fsnotify reports it changed, debounced by
// cfg.Watch.DebounceInterval so a burst of writes from one save collapses
// into a single re-run (grounded on cmd/commands/watcher.go's
// fsnotify.NewWatcher + debounce-timer shape).
var watchCmd = &cobra.Command{
	Use:   "watch <local-path>",
	Short: "Re-convert a local JSON file each time it changes on disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		path := args[0]

		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating file watcher: %w", err)
		}
		defer w.Close()

		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}

		runOnce := func() {
			data, err := os.ReadFile(path)
			if err != nil {
				carbonlog.Error("reading %s: %v", path, err)
				return
			}
			p, err := build(data, nil)
			if err != nil {
				carbonlog.Error("building archive from %s: %v", path, err)
				return
			}
			docs, err := converter.New(p.Dict).Decode(p.Archive)
			if err != nil {
				carbonlog.Error("decoding archive: %v", err)
				return
			}
			out, err := json.MarshalIndent(docs, "", "  ")
			if err != nil {
				carbonlog.Error("marshaling decoded document: %v", err)
				return
			}
			fmt.Println(string(out))
		}

		runOnce()

		var debounce *time.Timer
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(cfg.Watch.DebounceInterval, runOnce)
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				carbonlog.Error("watch error: %v", err)
			case <-c.Context().Done():
				return nil
			}
		}
	},
}
