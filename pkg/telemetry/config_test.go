package telemetry

import "testing"

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.ServiceName != "bringup" {
		t.Errorf("unexpected service name: %s", cfg.ServiceName)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "tracing enabled with otlp",
			mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "otlp" },
		},
		{
			name:    "unknown exporter",
			mutate:  func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "jaeger" },
			wantErr: true,
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Tracing.Enabled = true; c.Tracing.SamplingRate = 1.5 },
			wantErr: true,
		},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
