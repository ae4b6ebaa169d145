// Package backend provides a standard way to construct a storage
// backend based on command-line flags.
package backend

import "github.com/diffeo/go-mgmtapi/memory"
import "github.com/diffeo/go-mgmtapi/mgmtapi"
import "github.com/diffeo/go-mgmtapi/postgres"
import "errors"
import "strings"

// Backend describes user-visible parameters to store API records.
// This implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         backend := backend.Backend{Implementation: "memory"}
//         flag.Var(&backend, "backend", "impl:address of record storage")
//         flag.Parse()
//         store, err := backend.Store(0)
//     }
type Backend struct {
	// Implementation holds the name of the implementation; for
	// instance, "memory" or "postgres".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string.
	Address string
}

// Store creates a new storage backend in the given region's id number
// space.  This generally should be only called once.  If the backend
// has in-process state, such as a database connection pool or an
// in-memory store, calling this multiple times will create multiple
// copies of that state.  In particular, if b.Implementation is
// "memory", multiple calls to this will create multiple independent
// record "worlds".
//
// If b.Implementation does not match a known implementation, panics.
// It is assumed that Set() will validate at least the implementation.
func (b *Backend) Store(region uint64) (mgmtapi.Storage, error) {
	switch b.Implementation {
	case "memory":
		return memory.NewWithRegion(region), nil
	case "postgres":
		return postgres.NewWithRegion(b.Address, region)
	default:
		panic(errors.New("unknown storage backend " + b.Implementation))
	}
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks to see if the provided
// implementation is any of the known implementations, and returns an
// appropriate error if not.
//
// This is part of the flag.Value interface.  If Set returns a nil
// error then Store() will return successfully.  Note that neither
// function attempts to validate the b.Address part of the string or
// attempts to actually make a connection.
func (b *Backend) Set(param string) (err error) {
	parts := strings.SplitN(param, ":", 2)
	switch len(parts) {
	case 0:
		err = errors.New("must specify a backend type")
	case 1:
		b.Implementation = parts[0]
		b.Address = ""
	case 2:
		b.Implementation = parts[0]
		b.Address = parts[1]
	default:
		err = errors.New("strings.SplitN did something odd")
	}

	if err == nil {
		switch b.Implementation {
		case "memory", "postgres":
		default:
			err = errors.New("unknown storage backend " + b.Implementation)
		}
	}
	return
}
