package vol

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is wrapped by errors that reference a nonexistent object or subobject.
	ErrNotFound = errors.New("not found")

	// ErrExists is wrapped when creating an entity whose id is already taken.
	ErrExists = errors.New("already exists")

	// ErrInvalidState is wrapped when an operation's precondition does not hold, e.g.,
	// unmerging without exactly one selected object.
	ErrInvalidState = errors.New("invalid state")
)

// StorageUnavailableError lists the cubes a cube store could not supply during an
// operation.  The operation still processed every other cube, so callers should read
// it as "some cubes were not updated".
type StorageUnavailableError struct {
	Cubes []ChunkPoint3d
}

// NewStorageUnavailableError returns nil if no cubes were missing.
func NewStorageUnavailableError(missing map[ChunkPoint3d]struct{}) error {
	if len(missing) == 0 {
		return nil
	}
	cubes := make([]ChunkPoint3d, 0, len(missing))
	for c := range missing {
		cubes = append(cubes, c)
	}
	sort.Slice(cubes, func(i, j int) bool { return cubes[i].Less(cubes[j]) })
	return &StorageUnavailableError{Cubes: cubes}
}

func (e *StorageUnavailableError) Error() string {
	const maxListed = 8
	var coords []string
	for i, c := range e.Cubes {
		if i == maxListed {
			coords = append(coords, "...")
			break
		}
		coords = append(coords, c.String())
	}
	return fmt.Sprintf("storage unavailable for %d cube(s): %s", len(e.Cubes), strings.Join(coords, " "))
}
