// internal/export/embed.go
package export

import (
	"fmt"
	"html"
)

const (
	DefaultEmbedWidth  = 300
	DefaultEmbedHeight = 300
	playerScriptURL    = "https://unpkg.com/@lottiefiles/lottie-player@latest/dist/lottie-player.js"
)

// EmbedCode returns an HTML snippet that plays the animation at jsonURL.
// Non-positive dimensions use the 300x300 default.
func EmbedCode(jsonURL string, width, height int) string {
	if width <= 0 {
		width = DefaultEmbedWidth
	}
	if height <= 0 {
		height = DefaultEmbedHeight
	}
	return fmt.Sprintf(`<script src="%s"></script>
<lottie-player src="%s" background="transparent" speed="1" style="width: %dpx; height: %dpx;" loop autoplay></lottie-player>`,
		playerScriptURL, html.EscapeString(jsonURL), width, height)
}
