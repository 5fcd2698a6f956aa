package bundle

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Virtual module prefixes understood by the html plugin.
const (
	inlinePrefix = "brick-inline:"
	stylePrefix  = "brick-style:"
)

// Asset is a local file referenced from an attribute of the page, such as
// an <img src> or a <link rel="icon" href>.
type Asset struct {
	node *html.Node
	attr string

	// URL is the reference as written in the document.
	URL string
}

// Page is a parsed HTML document and the local resources it references.
type Page struct {
	doc *html.Node

	// Scripts are the src values of local <script type="module"> elements.
	Scripts []string

	// InlineScripts are the bodies of inline module scripts.
	InlineScripts []string

	// Styles are the href values of local <link rel="stylesheet"> elements.
	Styles []string

	// Assets are local images and icons.
	Assets []*Asset

	bundled []*html.Node
}

// ParsePage parses an HTML document and collects its local resources.
// The document is not modified.
func ParsePage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	p := &Page{doc: doc}
	p.collect(doc)
	return p, nil
}

func (p *Page) collect(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script:
			if strings.EqualFold(attr(n, "type"), "module") {
				if src, ok := attrOK(n, "src"); ok {
					if isLocal(src) {
						p.Scripts = append(p.Scripts, src)
						p.bundled = append(p.bundled, n)
					}
				} else {
					p.InlineScripts = append(p.InlineScripts, textContent(n))
					p.bundled = append(p.bundled, n)
				}
			}
		case atom.Link:
			href := attr(n, "href")
			rels := strings.Fields(strings.ToLower(attr(n, "rel")))
			switch {
			case hasToken(rels, "stylesheet") && isLocal(href):
				p.Styles = append(p.Styles, href)
				p.bundled = append(p.bundled, n)
			case (hasToken(rels, "icon") || hasToken(rels, "apple-touch-icon")) && isLocal(href):
				p.Assets = append(p.Assets, &Asset{node: n, attr: "href", URL: href})
			}
		case atom.Img:
			if src := attr(n, "src"); isLocal(src) {
				p.Assets = append(p.Assets, &Asset{node: n, attr: "src", URL: src})
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.collect(c)
	}
}

// VirtualModule returns the JavaScript module that stands in for the page
// during the build: linked style sheets first, then module scripts, then
// inline scripts, each in document order.
func (p *Page) VirtualModule() string {
	var b strings.Builder
	for _, href := range p.Styles {
		fmt.Fprintf(&b, "import %q;\n", stylePrefix+importSpecifier(href))
	}
	for _, src := range p.Scripts {
		fmt.Fprintf(&b, "import %q;\n", importSpecifier(src))
	}
	for i := range p.InlineScripts {
		fmt.Fprintf(&b, "import %q;\n", fmt.Sprintf("%s%d", inlinePrefix, i))
	}
	return b.String()
}

// StripBundled removes every element whose resource went into the bundle.
func (p *Page) StripBundled() {
	for _, n := range p.bundled {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	p.bundled = nil
}

// SetAssetURL points an asset reference at a new location.
func (p *Page) SetAssetURL(a *Asset, u string) {
	setAttr(a.node, a.attr, u)
	a.URL = u
}

// AddStylesheet appends <link rel="stylesheet" href=href> to the head.
func (p *Page) AddStylesheet(href string) {
	p.appendHead(&html.Node{
		Type:     html.ElementNode,
		Data:     "link",
		DataAtom: atom.Link,
		Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: href},
		},
	})
}

// AddModuleScript appends <script type="module" src=src> to the head.
func (p *Page) AddModuleScript(src string) {
	p.appendHead(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "type", Val: "module"},
			{Key: "src", Val: src},
		},
	})
}

func (p *Page) appendHead(n *html.Node) {
	head := find(p.doc, atom.Head)
	if head == nil {
		head = p.doc
	}
	head.AppendChild(n)
}

// Render writes the document.
func (p *Page) Render(w io.Writer) error {
	if err := html.Render(w, p.doc); err != nil {
		return eris.Wrap(err, "render html")
	}
	return nil
}

// isLocal reports whether ref points into the project rather than at
// another origin or inline data.
func isLocal(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "#") {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

// importSpecifier converts a page reference to a relative import path:
// query and fragment are dropped, root-relative paths become relative to
// the project root.
func importSpecifier(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	switch {
	case strings.HasPrefix(ref, "/"):
		return "." + ref
	case strings.HasPrefix(ref, "./"), strings.HasPrefix(ref, "../"):
		return ref
	default:
		return "./" + ref
	}
}

func attr(n *html.Node, key string) string {
	v, _ := attrOK(n, key)
	return v
}

func attrOK(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
