package projects

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/codr1/lottiecolor/internal/models"
)

const timeFormat = "Jan 2, 2006 3:04 PM"

// ProjectList renders the project index with the import form.
func ProjectList(projects []models.Project) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="space-y-6">`)
		b.WriteString(`<div class="flex items-center justify-between"><h1 class="text-2xl font-semibold">Projects</h1></div>`)
		b.WriteString(`<form class="flex gap-2" hx-post="/api/v1/import" hx-target="#import-feedback" hx-swap="innerHTML">`)
		b.WriteString(`<input type="url" name="url" required placeholder="https://lottiefiles.com/animations/..." class="flex-1 rounded border px-3 py-2">`)
		b.WriteString(`<button type="submit" class="rounded px-4 py-2" style="background:var(--theme-accent);color:var(--theme-accent-text)">Import</button></form>`)
		b.WriteString(`<form class="flex gap-2" hx-post="/api/v1/import/upload" hx-encoding="multipart/form-data" hx-target="#import-feedback" hx-swap="innerHTML">`)
		b.WriteString(`<input type="file" name="file" accept=".json,.lottie,application/json,application/zip" required class="flex-1">`)
		b.WriteString(`<button type="submit" class="rounded border px-4 py-2">Upload</button></form>`)
		b.WriteString(`<div id="import-feedback"></div>`)
		b.WriteString(`<div id="project-list">`)
		b.WriteString(projectListHTML(projects))
		b.WriteString(`</div></div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func projectListHTML(projects []models.Project) string {
	if len(projects) == 0 {
		return `<div class="rounded border border-dashed p-6 text-center text-sm text-gray-500">No projects yet. Import an animation to get started.</div>`
	}
	var b strings.Builder
	b.WriteString(`<ul class="divide-y rounded border bg-white">`)
	for _, p := range projects {
		fmt.Fprintf(&b, `<li class="flex items-center justify-between px-4 py-3"><a class="font-medium hover:underline" href="/projects/%d">%s</a><span class="text-sm text-gray-500">%s</span></li>`,
			p.ID, html.EscapeString(p.Name), html.EscapeString(p.LastModified.Format(timeFormat)))
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// Editor renders a project's palette, version controls and edit history.
func Editor(data EditorData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		p := data.Project
		fmt.Fprintf(&b, `<div class="space-y-6" id="editor" data-project-id="%d">`, p.ID)
		fmt.Fprintf(&b, `<div class="flex items-center justify-between"><h1 class="text-2xl font-semibold">%s</h1>`, html.EscapeString(p.Name))
		b.WriteString(`<div class="flex gap-2">`)
		fmt.Fprintf(&b, `<a class="rounded border px-3 py-1" href="/api/v1/projects/%d/export?format=json">JSON</a>`, p.ID)
		fmt.Fprintf(&b, `<a class="rounded border px-3 py-1" href="/api/v1/projects/%d/export?format=lottie">.lottie</a>`, p.ID)
		b.WriteString(`</div></div>`)
		if p.SourceURL != "" {
			fmt.Fprintf(&b, `<p class="text-sm text-gray-500">Imported from <a class="underline" href="%s" rel="noopener">%s</a></p>`,
				html.EscapeString(p.SourceURL), html.EscapeString(p.SourceURL))
		}
		b.WriteString(versionControlsHTML(p.ID, data))
		fmt.Fprintf(&b, `<section><h2 class="mb-2 text-lg font-semibold">Palette</h2><div id="palette" hx-get="/projects/%d/palette" hx-trigger="refreshPalette from:body" hx-swap="innerHTML">`, p.ID)
		b.WriteString(paletteHTML(p.ID, data.Swatches))
		b.WriteString(`</div></section>`)
		b.WriteString(`<section><h2 class="mb-2 text-lg font-semibold">Recent edits</h2>`)
		b.WriteString(historyHTML(data.Edits))
		b.WriteString(`</section>`)
		if data.EmbedURL != "" {
			fmt.Fprintf(&b, `<section><h2 class="mb-2 text-lg font-semibold">Embed</h2><div hx-get="%s" hx-trigger="load" hx-swap="innerHTML"></div></section>`,
				html.EscapeString(data.EmbedURL))
		}
		if data.CanShare {
			fmt.Fprintf(&b, `<section><h2 class="mb-2 text-lg font-semibold">Share</h2><form class="flex gap-2" hx-post="/api/v1/projects/%d/share" hx-target="#share-feedback"><input type="email" name="email" required class="flex-1 rounded border px-3 py-2" placeholder="friend@example.com"><button type="submit" class="rounded border px-4 py-2">Send</button></form><div id="share-feedback"></div></section>`, p.ID)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Palette renders only the swatch grid, for htmx refreshes.
func Palette(projectID int64, swatches []Swatch) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, paletteHTML(projectID, swatches))
		return err
	})
}

func versionControlsHTML(projectID int64, data EditorData) string {
	undoDisabled, redoDisabled := "", ""
	if !data.State.CanUndo {
		undoDisabled = " disabled"
	}
	if !data.State.CanRedo {
		redoDisabled = " disabled"
	}
	return fmt.Sprintf(`<div class="flex gap-2" id="version-controls"><button class="rounded border px-3 py-1" hx-post="/api/v1/projects/%d/undo" hx-swap="none"%s>Undo</button><button class="rounded border px-3 py-1" hx-post="/api/v1/projects/%d/redo" hx-swap="none"%s>Redo</button></div>`,
		projectID, undoDisabled, projectID, redoDisabled)
}

func paletteHTML(projectID int64, swatches []Swatch) string {
	if len(swatches) == 0 {
		return `<div class="rounded border border-dashed p-6 text-center text-sm text-gray-500">No colors found in this animation.</div>`
	}
	var b strings.Builder
	b.WriteString(`<div class="grid grid-cols-2 gap-3 sm:grid-cols-4">`)
	for _, s := range swatches {
		rep := html.EscapeString(s.Representative)
		fmt.Fprintf(&b, `<form class="rounded border p-3" style="background:%s;color:%s" hx-post="/api/v1/projects/%d/colors/replace-group" hx-swap="none">`,
			rep, s.TextColor, projectID)
		fmt.Fprintf(&b, `<div class="font-mono text-sm">%s <span class="font-sans">%s</span></div><div class="text-xs">%d uses · %s</div>`,
			rep, html.EscapeString(s.Name), s.Count, html.EscapeString(s.Label()))
		for _, path := range s.Paths {
			fmt.Fprintf(&b, `<input type="hidden" name="paths" value="%s">`, html.EscapeString(path))
		}
		fmt.Fprintf(&b, `<input type="hidden" name="oldColor" value="%s">`, rep)
		fmt.Fprintf(&b, `<input type="color" name="newColor" value="%s" class="mt-2 h-8 w-full">`, strings.ToLower(rep))
		b.WriteString(`<button type="submit" class="mt-2 w-full rounded border px-2 py-1 text-xs">Apply</button></form>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func historyHTML(edits []models.ColorEdit) string {
	if len(edits) == 0 {
		return `<p class="text-sm text-gray-500">No edits yet.</p>`
	}
	var b strings.Builder
	b.WriteString(`<ul class="space-y-1 text-sm">`)
	for _, e := range edits {
		fmt.Fprintf(&b, `<li><span class="font-mono">%s</span> → <span class="font-mono">%s</span> <span class="text-gray-500">(%d sites, %s)</span></li>`,
			html.EscapeString(e.OldColor), html.EscapeString(e.NewColor), e.SitesChanged, html.EscapeString(e.Timestamp.Format(timeFormat)))
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// EmbedSnippet renders copyable embed code for the editor's embed panel.
func EmbedSnippet(code, jsonURL string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="space-y-2">`)
		fmt.Fprintf(&b, `<p class="text-sm text-gray-500">Animation JSON: <a class="hover:underline" href="%s">%s</a></p>`,
			html.EscapeString(jsonURL), html.EscapeString(jsonURL))
		fmt.Fprintf(&b, `<pre class="overflow-x-auto rounded border bg-gray-50 p-3 text-xs"><code>%s</code></pre>`, html.EscapeString(code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
