// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package specs

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// HashConfig maps a configuration to a short stable identifier. The
// config is serialized as key=value pairs in sorted key order, hashed
// with 32-bit FNV-1a, and rendered in base 36. Two logically identical
// configs always hash the same, across processes and over time. This is
// a dedup/display id, not a security primitive; rare collisions are
// tolerated.
func HashConfig(c Config) string {
	pairs := make([]string, 0, len(Dials)+2)
	pairs = append(pairs, "goal="+c.Goal, "model="+c.Model)
	for _, d := range Dials {
		pairs = append(pairs, d.Name+"="+strconv.Itoa(d.Get(&c)))
	}
	sort.Strings(pairs)

	h := fnv.New32a()
	h.Write([]byte(strings.Join(pairs, ";")))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}
