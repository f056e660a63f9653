package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCapabilityForCommand(t *testing.T) {
	tests := []struct {
		command string
		want    Capability
	}{
		{"decide", CapabilityAnalysis},
		{"analyze", CapabilityAnalysis},
		{"adr", CapabilityWriting},
		{"update", CapabilityWriting},
		{"status", CapabilityFast},
		{"todo", CapabilityFast},
		{"unknown", CapabilityFast},
	}

	for _, tt := range tests {
		if got := CapabilityForCommand(tt.command); got != tt.want {
			t.Errorf("CapabilityForCommand(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestDefaultRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry()

	if got := r.Resolve(CapabilityAnalysis); got != "claude-sonnet" {
		t.Errorf("Resolve(analysis) = %q, want claude-sonnet", got)
	}
	if got := r.Resolve(CapabilityFast); got != "claude-haiku" {
		t.Errorf("Resolve(fast) = %q, want claude-haiku", got)
	}
	// Unknown capability falls back to default
	if got := r.Resolve(Capability("bogus")); got != "claude-sonnet" {
		t.Errorf("Resolve(bogus) = %q, want default claude-sonnet", got)
	}
}

func TestFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()

	chain := r.GetFallbackChain(CapabilityWriting)
	want := []string{"claude-sonnet", "claude-haiku", "qwen"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}

	cmdChain := r.GetFallbackChainForCommand("adr")
	if cmdChain[0] != "claude-sonnet" {
		t.Errorf("chain for adr starts with %q, want claude-sonnet", cmdChain[0])
	}
}

func TestGetEndpoint(t *testing.T) {
	r := NewDefaultRegistry()

	ep := r.GetEndpoint("qwen")
	if ep == nil {
		t.Fatal("expected qwen endpoint")
	}
	if ep.Provider != "ollama" {
		t.Errorf("qwen provider = %q, want ollama", ep.Provider)
	}
	if r.GetEndpoint("unknown") != nil {
		t.Error("unknown endpoint should return nil")
	}
}

func TestCircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  50 * time.Millisecond,
	})

	if !r.IsEndpointAvailable("claude-sonnet") {
		t.Fatal("fresh endpoint should be available")
	}

	r.MarkEndpointFailure("claude-sonnet")
	if !r.IsEndpointAvailable("claude-sonnet") {
		t.Fatal("one failure should not trip the circuit")
	}

	r.MarkEndpointFailure("claude-sonnet")
	if r.IsEndpointAvailable("claude-sonnet") {
		t.Fatal("circuit should be open after threshold failures")
	}

	health := r.GetEndpointHealth("claude-sonnet")
	if health == nil || !health.CircuitOpen || health.FailureCount != 2 {
		t.Fatalf("unexpected health: %+v", health)
	}

	// Recovery timeout passes, half-open allows a test request
	time.Sleep(60 * time.Millisecond)
	if !r.IsEndpointAvailable("claude-sonnet") {
		t.Fatal("endpoint should be half-open after recovery timeout")
	}

	r.MarkEndpointSuccess("claude-sonnet")
	health = r.GetEndpointHealth("claude-sonnet")
	if health.CircuitOpen || health.FailureCount != 0 {
		t.Fatalf("success should reset health, got %+v", health)
	}
}

func TestAvailableFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})

	r.MarkEndpointFailure("claude-sonnet")

	chain := r.GetAvailableFallbackChain(CapabilityWriting)
	for _, name := range chain {
		if name == "claude-sonnet" {
			t.Error("tripped endpoint should be filtered out")
		}
	}

	// When everything is down, the full chain comes back
	r.MarkEndpointFailure("claude-haiku")
	r.MarkEndpointFailure("qwen")
	chain = r.GetAvailableFallbackChain(CapabilityWriting)
	if len(chain) != 3 {
		t.Errorf("all-down chain length = %d, want 3", len(chain))
	}
}

func TestRegistryJSONRoundTrip(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetDefault("qwen")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Registry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.Resolve(CapabilityFast) != "claude-haiku" {
		t.Error("capabilities lost in round trip")
	}
	if got.Resolve(Capability("bogus")) != "qwen" {
		t.Error("default lost in round trip")
	}
	if got.GetEndpoint("llama3.2") == nil {
		t.Error("endpoints lost in round trip")
	}
}
