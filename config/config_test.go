package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir()) // no config file anywhere
	if err != nil {
		t.Fatalf("load with defaults only: %v", err)
	}

	if cfg.Scan.IntervalSeconds != 150 {
		t.Errorf("scan interval = %d, want 150", cfg.Scan.IntervalSeconds)
	}
	if cfg.Scan.EnterScore != 70 || cfg.Scan.ExitScore != 55 {
		t.Errorf("scores = %.0f/%.0f, want 70/55", cfg.Scan.EnterScore, cfg.Scan.ExitScore)
	}
	if cfg.Consistency.TolerancePct != 0.01 {
		t.Errorf("tolerance = %.3f, want 0.01", cfg.Consistency.TolerancePct)
	}
	if cfg.Fundamental.NearHighThreshold != 0.95 {
		t.Errorf("near-high threshold = %.2f, want 0.95", cfg.Fundamental.NearHighThreshold)
	}
	if cfg.Facade.Addr != ":8085" {
		t.Errorf("facade addr = %s, want :8085", cfg.Facade.Addr)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"exit above enter", func(c *Config) { c.Scan.ExitScore = 75 }},
		{"exit equals enter", func(c *Config) { c.Scan.ExitScore = c.Scan.EnterScore }},
		{"zero confirm count", func(c *Config) { c.Scan.ConfirmCount = 0 }},
		{"zero fade count", func(c *Config) { c.Scan.FadeCount = 0 }},
		{"negative cooldown", func(c *Config) { c.Scan.CooldownPolls = -1 }},
		{"zero error threshold", func(c *Config) { c.Scan.MaxConsecutiveErrors = 0 }},
		{"zero tolerance", func(c *Config) { c.Consistency.TolerancePct = 0 }},
		{"near-high above one", func(c *Config) { c.Fundamental.NearHighThreshold = 1.2 }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := base()
			c.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestToleranceFor(t *testing.T) {
	cfg := ConsistencyConfig{
		TolerancePct:      0.01,
		IndexTolerancePct: 0.05,
	}

	if got := cfg.ToleranceFor("STOCK"); got != 0.01 {
		t.Errorf("stock tolerance = %.3f, want base 0.01", got)
	}
	if got := cfg.ToleranceFor("INDEX"); got != 0.05 {
		t.Errorf("index tolerance = %.3f, want override 0.05", got)
	}
	// No board override configured: falls back to base.
	if got := cfg.ToleranceFor("CONCEPT"); got != 0.01 {
		t.Errorf("concept tolerance = %.3f, want base 0.01", got)
	}
}
