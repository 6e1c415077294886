package internal

import "errors"

// ErrAlreadyExists is returned by object store writes with create-if-absent
// semantics when the target object is already present. It is the only
// synchronization primitive the engine relies on from the object store.
var ErrAlreadyExists = errors.New("object already exists")
