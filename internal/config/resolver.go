package config

import "slices"

// Resolve returns the configured module IDs in sorted order so modules
// load deterministically.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
