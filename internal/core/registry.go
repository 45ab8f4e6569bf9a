package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// registry is the process-wide module catalogue filled from init()
// functions of module packages.
type registry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

var modules = &registry{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule adds instance's ModuleInfo to the catalogue. IDs must be
// namespaced ("channel.telegram"). It panics on an invalid or duplicate
// ID, so a broken build fails at startup rather than at load time.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if err := checkInfo(info); err != nil {
		panic(err.Error())
	}

	modules.mu.Lock()
	defer modules.mu.Unlock()
	if _, dup := modules.byID[info.ID]; dup {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	modules.byID[info.ID] = info
}

func checkInfo(info ModuleInfo) error {
	switch {
	case info.ID == "":
		return fmt.Errorf("module ID must not be empty")
	case !strings.Contains(string(info.ID), ".") || info.ID.Namespace() == "" || info.ID.Name() == "":
		return fmt.Errorf("module %s: ID must have the form namespace.name", info.ID)
	case info.New == nil:
		return fmt.Errorf("module %s: New function must not be nil", info.ID)
	}
	return nil
}

// GetModule returns the ModuleInfo registered under id.
func GetModule(id string) (ModuleInfo, bool) {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	info, ok := modules.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns every registered module, sorted by ID. When
// namespaces are given only modules in one of them are returned.
func GetModules(namespaces ...string) []ModuleInfo {
	modules.mu.RLock()
	defer modules.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(modules.byID))
	out := make([]ModuleInfo, 0, len(ids))
	for _, id := range ids {
		if len(namespaces) > 0 && !slices.Contains(namespaces, id.Namespace()) {
			continue
		}
		out = append(out, modules.byID[id])
	}
	return out
}

// resetRegistry empties the catalogue between tests.
func resetRegistry() {
	modules.mu.Lock()
	defer modules.mu.Unlock()
	clear(modules.byID)
}
