// internal/importer/page.go
package importer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var playerTags = map[string]struct{}{
	"lottie-player":    {},
	"dotlottie-player": {},
	"dotlottie-wc":     {},
}

type page struct {
	title string
	src   string
}

// parsePage finds the first lottie player element and the page title.
func parsePage(body []byte) (page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return page{}, fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
	}

	var (
		p      page
		player *html.Node
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && p.title == "" {
				p.title = collectText(n)
			}
			if _, ok := playerTags[strings.ToLower(n.Data)]; ok && player == nil {
				player = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if player == nil {
		return page{}, ErrNoAnimation
	}
	p.src = strings.TrimSpace(getAttr(player, "src"))
	if p.src == "" {
		return page{}, ErrSourceNotFound
	}
	return p, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
