// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package specs defines the agent configuration shape and the pure
aggregation that turns many participants' selections into one canonical
final configuration.

# Configuration

A Config names a model, a goal, and eight ordinal dials in [0,3]
(None/Low/Med/High): five capability boundaries and three oversight
controls. The Dials table is the authoritative enumeration of the
ordinal fields; code never dispatches on struct keys.

# Aggregation

ComputeFinalConfig applies majority vote to the categorical fields, with
ties resolved by the fixed priority order of Models and Goals, and the
mode-with-highest-original-value rule to each dial. It is deterministic
and side-effect free; given the same selections in any order it returns
an identical Config and config id.

# Identity

HashConfig derives a short stable identifier from a Config's values,
independent of field ordering, for dedup and display.
*/
package specs
