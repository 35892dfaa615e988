// internal/templates/layouts/base.go
package layouts

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

const htmxScriptURL = "https://unpkg.com/htmx.org@1.9.12"

// Page configures the shared document shell.
type Page struct {
	Title  string
	Accent string
}

// Base wraps content in the full HTML document.
func Base(page Page, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := page.Title
		if title == "" {
			title = "Lottie Color Editor"
		} else {
			title = title + " | Lottie Color Editor"
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><link rel="stylesheet" href="/static/css/main.css"><style>%s</style><script src="%s"></script></head>`,
			html.EscapeString(title), getThemeCssVars(page.Accent), htmxScriptURL); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<body class="min-h-screen bg-gray-50 text-gray-900"><header class="border-b bg-white"><div class="mx-auto max-w-6xl px-4 py-3"><a href="/" class="text-lg font-semibold" style="color:var(--theme-accent)">Lottie Color Editor</a></div></header><main class="mx-auto max-w-6xl px-4 py-6">`); err != nil {
			return err
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}
