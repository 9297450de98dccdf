// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package specs

import "fmt"

// Dial levels
const (
	LevelNone = 0
	LevelLow  = 1
	LevelMed  = 2
	LevelHigh = 3
)

// Models the simulated agent can run on, in tie-break priority order.
// The first entry is the default for empty aggregations.
var Models = []string{"nimbus-1", "nimbus-2", "nimbus-max"}

// Goals the agent can be configured to pursue, in tie-break priority order.
var Goals = []string{GoalNone, GoalEfficiency, GoalAutonomy}

const (
	GoalNone       = "none"
	GoalEfficiency = "efficiency"
	GoalAutonomy   = "autonomy"
)

// Config is one agent configuration: a model choice, a goal, and eight
// ordinal dials in [0,3]. The same shape serves both a participant's
// selection and the final locked configuration.
type Config struct {
	Model string `json:"model"`
	Goal  string `json:"goal"`

	// Boundary dials: what the agent is permitted to touch.
	Internet   int `json:"internet"`
	Filesystem int `json:"filesystem"`
	Email      int `json:"email"`
	Devices    int `json:"devices"`
	Spending   int `json:"spending"`

	// Oversight dials: how closely the agent is watched.
	Approval   int `json:"approval"`
	Logging    int `json:"logging"`
	Killswitch int `json:"killswitch"`
}

// DialKind distinguishes capability boundaries from oversight controls.
type DialKind string

const (
	KindBoundary  DialKind = "boundary"
	KindOversight DialKind = "oversight"
)

// Dial describes one ordinal field: its wire name, kind, display weights,
// and typed accessors into Config. The table below is the single
// enumeration of ordinal fields; nothing iterates struct keys at runtime.
type Dial struct {
	Name string
	Kind DialKind
	Risk float64 // contribution to the displayed risk index per level
	Perf float64 // contribution to the displayed capability index per level
	Get  func(*Config) int
	Set  func(*Config, int)
}

// Dials enumerates every ordinal field of Config in canonical order.
var Dials = []Dial{
	{"internet", KindBoundary, 0.25, 0.30,
		func(c *Config) int { return c.Internet },
		func(c *Config, v int) { c.Internet = v }},
	{"filesystem", KindBoundary, 0.15, 0.20,
		func(c *Config) int { return c.Filesystem },
		func(c *Config, v int) { c.Filesystem = v }},
	{"email", KindBoundary, 0.20, 0.15,
		func(c *Config) int { return c.Email },
		func(c *Config, v int) { c.Email = v }},
	{"devices", KindBoundary, 0.25, 0.20,
		func(c *Config) int { return c.Devices },
		func(c *Config, v int) { c.Devices = v }},
	{"spending", KindBoundary, 0.15, 0.15,
		func(c *Config) int { return c.Spending },
		func(c *Config, v int) { c.Spending = v }},
	{"approval", KindOversight, -0.20, -0.10,
		func(c *Config) int { return c.Approval },
		func(c *Config, v int) { c.Approval = v }},
	{"logging", KindOversight, -0.10, 0.0,
		func(c *Config) int { return c.Logging },
		func(c *Config, v int) { c.Logging = v }},
	{"killswitch", KindOversight, -0.15, -0.05,
		func(c *Config) int { return c.Killswitch },
		func(c *Config, v int) { c.Killswitch = v }},
}

// Default returns the configuration used when no selections exist:
// all dials at None, the first model, goal "none".
func Default() Config {
	return Config{Model: Models[0], Goal: GoalNone}
}

// ValidationError reports a Config field outside its declared domain.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks categorical fields against their enumerations. Ordinal
// dials are not rejected here; they are clamped at aggregation time.
func Validate(c Config) error {
	if !contains(Models, c.Model) {
		return &ValidationError{Field: "model", Reason: "unknown model " + c.Model}
	}
	if !contains(Goals, c.Goal) {
		return &ValidationError{Field: "goal", Reason: "unknown goal " + c.Goal}
	}
	return nil
}

// Clamp returns a copy of c with every dial forced into [0,3].
func Clamp(c Config) Config {
	for _, d := range Dials {
		d.Set(&c, clampLevel(d.Get(&c)))
	}
	return c
}

// RiskIndex is a weighted sum over the dial table, used only for display
// next to a preview. It is not part of aggregation or identity.
func RiskIndex(c Config) float64 {
	c = Clamp(c)
	var sum float64
	for _, d := range Dials {
		sum += d.Risk * float64(d.Get(&c))
	}
	if sum < 0 {
		sum = 0
	}
	return sum
}

func clampLevel(v int) int {
	if v < LevelNone {
		return LevelNone
	}
	if v > LevelHigh {
		return LevelHigh
	}
	return v
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
