// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity generates and normalizes the opaque identifiers used
throughout the service.

Participants and hosts are identified by client-persisted UUIDs; the
server never derives one from the other. Sessions are identified by a
short join code over an unambiguous alphabet, and stored under the
lower-cased code as key (SessionKey).
*/
package identity
