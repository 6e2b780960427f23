package core

import "github.com/google/uuid"

// ID identifies a single COM-exposed object for the lifetime of the
// process; resources are currently the only objects that receive one. It
// replaces the source's bare pointer identity, which Go can't expose
// safely across the GC, with a stable value generalizing the free-list
// "owner slot" scheme of the engine's identifier subsystem.
type ID uuid.UUID

// NewID mints a fresh identifier. resource.Manager calls it once per
// resource at construction time and stores the result on the Resource;
// profiling trace events do not carry it.
func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Nil reports whether id is the zero identifier (never minted by NewID).
func (id ID) Nil() bool {
	return id == ID{}
}
