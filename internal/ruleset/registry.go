// Package ruleset compiles configured responder rules into a match.RuleTable
// and keeps the registry of reply actions rules can name.
package ruleset

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/match"
)

// Env carries the local addresses actions answer with.
type Env struct {
	MAC core.HardwareAddr
	IP  core.IPv4Addr
}

// Factory builds the transform for one configured action.
type Factory func(cfg config.ActionConfig, env Env) (match.Transform, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

func init() {
	mustRegister("swap", newSwap)
	mustRegister("arp_reply", newARPReply)
}

// Register makes an action available to rules under name.
func Register(name string, f Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if name == "" || f == nil {
		return fmt.Errorf("action registration needs a name and a factory")
	}
	if _, exists := factories[name]; exists {
		return fmt.Errorf("action '%s' already registered", name)
	}
	factories[name] = f
	return nil
}

func mustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, exists := factories[name]
	if !exists {
		return nil, fmt.Errorf("action '%s': %w", name, core.ErrUnknownAction)
	}
	return f, nil
}

// Names lists registered actions in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
