package gitimport

import "errors"

// ErrNotFound is returned when a foreign id has no resolvable object in any
// consulted source.
var ErrNotFound = errors.New("gitimport: object not found")

// ErrUnsupportedEntry marks a foreign construct this importer refuses to
// translate: a gitlink/submodule tree entry, a tag ref naming neither a
// commit nor a tag object, or an annotated tag whose own target is not a
// commit (a tag of a tag is not peeled further).
var ErrUnsupportedEntry = errors.New("gitimport: unsupported entry")

// ErrCorrupt marks a foreign object or pack structure that fails to parse
// or fails a checksum it carries.
var ErrCorrupt = errors.New("gitimport: corrupt foreign data")
