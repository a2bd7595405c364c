package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"vehicle-price-tracker/utils"
)

// WatchList is the set of listing URLs checked by watch mode.
//
//	cron: "0 0 */6 * * *"
//	urls:
//	  - https://dealer.example/used/123
type WatchList struct {
	Cron string   `yaml:"cron"`
	URLs []string `yaml:"urls"`
	// Skipped counts blank and repeated entries dropped on load.
	Skipped int `yaml:"-"`
}

// DefaultWatchCron runs every six hours, on the hour (seconds field included).
const DefaultWatchCron = "0 0 */6 * * *"

// LoadWatchList reads a YAML watch list. Duplicate and blank URLs are dropped
// and a cronOverride (WATCH_CRON) takes precedence over the file's schedule.
func LoadWatchList(path, cronOverride string) (*WatchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch list: %w", err)
	}

	var wl WatchList
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watch list %q: %w", path, err)
	}

	set := utils.NewURLSet()
	for _, u := range wl.URLs {
		set.Add(u)
	}
	wl.Skipped = len(wl.URLs) - set.Size()
	wl.URLs = set.List()
	if set.Size() == 0 {
		return nil, fmt.Errorf("watch list %q has no urls", path)
	}

	if cronOverride != "" {
		wl.Cron = cronOverride
	}
	if wl.Cron == "" {
		wl.Cron = DefaultWatchCron
	}
	return &wl, nil
}
