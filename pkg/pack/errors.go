package pack

import "errors"

// ErrCorrupt is wrapped into any error raised by a failed checksum, size,
// or hash check — spec 4.I's "on verify mismatch, the pack is rejected as
// corrupt".
var ErrCorrupt = errors.New("pack: corrupt")

// ErrNotFound is returned by Get/Has-adjacent lookups for a hash absent
// from the pack's manifest.
var ErrNotFound = errors.New("pack: object not found")
