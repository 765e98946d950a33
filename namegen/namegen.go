package namegen

import (
	vendor "github.com/anandvarma/namegen"
)

var gen = vendor.New()

// ID is a generated human-readable identifier, used as cluster name when a
// start command is given a template but no explicit name.
type ID string

func Get() ID {
	return ID(gen.Get())
}

func (id ID) String() string {
	return string(id)
}
