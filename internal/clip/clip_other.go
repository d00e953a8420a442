//go:build !darwin && !linux && !windows

package clip

import "fmt"

// New always fails on platforms without a clipboard backend.
func New() (Accessor, error) {
	return nil, fmt.Errorf("%w: no clipboard backend for this platform", ErrUnavailable)
}
