//go:build !android && !js

package device

// Registers the vulkan backend with hal.
import _ "github.com/gogpu/wgpu/hal/vulkan"
