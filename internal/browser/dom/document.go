// browser/dom/document.go
package dom

import (
	"bytes"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Document is an in-memory snapshot of a page plus the journal of actions
// recorded against it. It is not safe for concurrent use; a fill pass owns
// its document.
type Document struct {
	root    *html.Node
	journal []Action
	order   map[*html.Node]int
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML snapshot: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Render serializes the current model, including every mutation applied so far.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document. Render errors yield an empty string.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

var hasherPool = sync.Pool{
	New: func() interface{} { return fnv.New64a() },
}

// Fingerprint hashes the rendered document. Two snapshots of a page that has
// stopped changing have equal fingerprints.
func (d *Document) Fingerprint() uint64 {
	hasher := hasherPool.Get().(hash.Hash64)
	defer func() {
		hasher.Reset()
		hasherPool.Put(hasher)
	}()

	_ = html.Render(hasher, d.root)
	return hasher.Sum64()
}

// FindAll evaluates an XPath expression against the whole document. Results are
// element nodes in document order with duplicates removed, whatever order the
// expression (for example a union) produced them in.
func (d *Document) FindAll(expr string) ([]*Element, error) {
	return d.query(d.root, expr)
}

// MustFindAll is FindAll for expressions known to be valid. It panics on a bad expression.
func (d *Document) MustFindAll(expr string) []*Element {
	els, err := d.FindAll(expr)
	if err != nil {
		panic(err)
	}
	return els
}

// FindOne returns the first match of expr in document order, or nil.
func (d *Document) FindOne(expr string) *Element {
	els, err := d.FindAll(expr)
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[0]
}

// ByID returns the first element with the given id, or nil.
func (d *Document) ByID(id string) *Element {
	if id == "" {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && htmlquery.SelectAttr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return d.wrap(found)
}

// Body returns the body element, or nil for a fragment without one.
func (d *Document) Body() *Element {
	return d.FindOne("//body")
}

func (d *Document) query(from *html.Node, expr string) ([]*Element, error) {
	nodes, err := htmlquery.QueryAll(from, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return d.inOrder(nodes), nil
}

func (d *Document) inOrder(nodes []*html.Node) []*Element {
	order := d.documentOrder()
	seen := make(map[*html.Node]struct{}, len(nodes))
	unique := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Type != html.ElementNode {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return order[unique[i]] < order[unique[j]]
	})

	out := make([]*Element, len(unique))
	for i, n := range unique {
		out[i] = d.wrap(n)
	}
	return out
}

// documentOrder indexes element nodes in pre-order. Mutators never add or
// remove elements, so the index is built once per document.
func (d *Document) documentOrder() map[*html.Node]int {
	if d.order != nil {
		return d.order
	}
	d.order = make(map[*html.Node]int)
	i := 0
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			d.order[n] = i
			i++
		}
		return true
	})
	return d.order
}

func (d *Document) wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

// walk visits n and its descendants in pre-order until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
