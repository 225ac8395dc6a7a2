package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyC   = 67  // C key (ASCII), clears the compile log
	KeyEsc = 256 // Escape key (GLFW), toggles the overlay
	KeyF5  = 294 // F5 key (GLFW), reloads the open shader
)
