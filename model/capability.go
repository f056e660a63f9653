// Package model manages model selection: capabilities map chat commands
// to preferred models with fallback chains, and endpoint health tracking
// keeps the client away from endpoints that keep failing.
package model

// Capability describes what a model is good at.
// Commands declare a capability instead of a model name, so deployments
// can swap models without touching command code.
type Capability string

const (
	// CapabilityAnalysis is for reasoning over the vault: tradeoff
	// analysis, impact assessment, decision support.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityWriting is for drafting documents: ADRs, summaries,
	// proposed edits.
	CapabilityWriting Capability = "writing"

	// CapabilityFast is for quick, cheap responses.
	CapabilityFast Capability = "fast"
)

// IsValid returns true if the capability is recognized.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityAnalysis, CapabilityWriting, CapabilityFast:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability.
// Returns empty string for unknown values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}

// commandCapabilities maps chat commands to their default capability.
var commandCapabilities = map[string]Capability{
	"decide":  CapabilityAnalysis,
	"analyze": CapabilityAnalysis,
	"adr":     CapabilityWriting,
	"update":  CapabilityWriting,
}

// CapabilityForCommand returns the default capability for a chat command.
// Commands that never call a model get CapabilityFast.
func CapabilityForCommand(command string) Capability {
	if cap, ok := commandCapabilities[command]; ok {
		return cap
	}
	return CapabilityFast
}
