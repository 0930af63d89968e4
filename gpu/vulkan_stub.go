//go:build !linux || !cgo

package gpu

import "github.com/rs/zerolog"

// NewVulkanDriver reports the backend unavailable: the Vulkan driver is
// built on linux with cgo. The selector never offers the strategy on this
// build.
func NewVulkanDriver(zerolog.Logger) (Driver, error) {
	return nil, ErrUnavailable
}
