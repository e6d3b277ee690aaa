package observability_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/ephemeron/observability"
)

func TestRegistry_Preregistered(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "noop", key: "noop"},
		{name: "slog", key: "slog"},
		{name: "metrics", key: "metrics"},
		{name: "unknown", key: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := observability.GetObserver(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetObserver(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && obs == nil {
				t.Errorf("GetObserver(%q) returned nil observer", tt.key)
			}
		})
	}
}

func TestRegistry_MetricsIsDefaultMetrics(t *testing.T) {
	obs, err := observability.GetObserver("metrics")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}
	if obs != observability.Observer(observability.DefaultMetrics) {
		t.Fatal("registered metrics observer is not DefaultMetrics")
	}

	before := observability.DefaultMetrics.Count("registry.test")
	obs.OnEvent(context.Background(), observability.Event{Type: "registry.test", Level: observability.LevelInfo})

	if got := observability.DefaultMetrics.Count("registry.test"); got != before+1 {
		t.Errorf("Count = %d, want %d", got, before+1)
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	first := &captureObserver{}
	second := &captureObserver{}

	observability.RegisterObserver("registry-test", first)
	observability.RegisterObserver("registry-test", second)

	obs, err := observability.GetObserver("registry-test")
	if err != nil {
		t.Fatalf("GetObserver failed: %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "x"})

	if first.count() != 0 || second.count() != 1 {
		t.Errorf("got counts %d and %d, want 0 and 1", first.count(), second.count())
	}
}
