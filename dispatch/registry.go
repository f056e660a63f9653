package dispatch

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

type registeredCommand struct {
	command Command
	pattern *regexp.Regexp
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registeredCommand)
)

// RegisterCommand adds a command to the global registry.
// Called from command package init functions; panics on conflicts since
// a broken registration is a programming error.
func RegisterCommand(cmd Command) {
	cfg := cmd.Config()
	if cfg.Name == "" {
		panic("dispatch: command with empty name")
	}

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = `^(.*)$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("dispatch: command %s has invalid pattern %q: %v", cfg.Name, pattern, err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[cfg.Name]; exists {
		panic(fmt.Sprintf("dispatch: command %s registered twice", cfg.Name))
	}
	registry[cfg.Name] = registeredCommand{command: cmd, pattern: re}
}

// GetCommand retrieves a registered command by name.
func GetCommand(name string) (Command, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	rc, ok := registry[name]
	if !ok {
		return nil, false
	}
	return rc.command, true
}

// ListCommands returns all registered commands sorted by name.
func ListCommands() []Command {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, registry[name].command)
	}
	return cmds
}
