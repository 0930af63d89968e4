//go:build !darwin || !cgo

package gpu

import "github.com/rs/zerolog"

// NewMetalDriver reports the backend unavailable: Metal needs darwin and
// cgo. The selector never offers the strategy on this build.
func NewMetalDriver(zerolog.Logger) (Driver, error) {
	return nil, ErrUnavailable
}
