// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package specs

import "testing"

func TestHashConfig_Stable(t *testing.T) {
	a := Default()
	b := Default()

	if HashConfig(a) != HashConfig(b) {
		t.Errorf("Identical configs must hash identically")
	}
	if HashConfig(a) != HashConfig(a) {
		t.Errorf("Hashing must be repeatable")
	}
}

func TestHashConfig_SensitiveToEveryField(t *testing.T) {
	base := HashConfig(Default())

	model := Default()
	model.Model = "nimbus-2"
	if HashConfig(model) == base {
		t.Errorf("Model change should change the hash")
	}

	goal := Default()
	goal.Goal = GoalAutonomy
	if HashConfig(goal) == base {
		t.Errorf("Goal change should change the hash")
	}

	for _, d := range Dials {
		c := Default()
		d.Set(&c, LevelLow)
		if HashConfig(c) == base {
			t.Errorf("Dial %s change should change the hash", d.Name)
		}
	}
}

func TestHashConfig_Format(t *testing.T) {
	id := HashConfig(Default())
	if id == "" {
		t.Fatalf("Hash must not be empty")
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z') {
			t.Errorf("Hash %q contains non base-36 rune %q", id, r)
		}
	}
}
