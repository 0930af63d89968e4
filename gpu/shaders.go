package gpu

import _ "embed"

// Shader sources are embedded and compiled by the drivers at init time:
// Metal through newLibraryWithSource, Vulkan through shaderc. Shipping
// source instead of precompiled blobs keeps the repository buildable with
// the Go toolchain alone; a host without the runtime compiler simply reports
// the backend unavailable.

//go:embed shaders/match_names.metal
var metalShaderSource string

//go:embed shaders/match_names.comp
var vulkanGlobSource string

//go:embed shaders/regex_match_names.comp
var vulkanRegexSource string
