// Package hocr reads the hOCR documents produced by the HOCR output
// format: pages, lines and words with their bounding boxes and
// recognition confidences.
package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ErrNoPages reports a document without a single ocr_page element.
var ErrNoPages = errors.New("hocr: no ocr_page elements")

// BBox is a pixel bounding box, x0/y0 top-left, x1/y1 bottom-right.
type BBox struct {
	X0, Y0, X1, Y1 int
}

func (b BBox) Width() int  { return b.X1 - b.X0 }
func (b BBox) Height() int { return b.Y1 - b.Y0 }

type Word struct {
	Text string
	BBox BBox
	// Conf is the recognition confidence, 0-100.
	Conf float64
}

type Line struct {
	BBox  BBox
	Words []Word
}

// Text joins the line's words with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

type Page struct {
	ID     string
	Number int
	Image  string
	BBox   BBox
	Lines  []Line
}

// Text joins the page's lines with newlines.
func (p Page) Text() string {
	parts := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, "\n")
}

type Document struct {
	Title  string
	System string
	Pages  []Page
}

// Parse reads an hOCR document. Documents declaring a non-UTF-8
// charset are decoded as ISO-8859-1 first; Tesseract historically
// emitted Latin-1 hOCR.
func Parse(data []byte) (*Document, error) {
	if cs := declaredCharset(data); cs != "" && cs != "utf-8" {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("hocr: decode %s: %w", cs, err)
		}
		data = decoded
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("hocr: parse: %w", err)
	}

	doc := &Document{}
	collectMeta(root, doc)
	collectPages(root, doc)
	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return doc, nil
}

func declaredCharset(data []byte) string {
	content := strings.ToLower(string(data))
	i := strings.Index(content, "charset=")
	if i < 0 {
		return ""
	}
	rest := content[i+len("charset="):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == '"' || r == '\'' || r == ';' || r == '>' || r == ' '
	})
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

func collectMeta(n *html.Node, doc *Document) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if n.FirstChild != nil {
				doc.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			if attr(n, "name") == "ocr-system" {
				doc.System = attr(n, "content")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, doc)
	}
}

func collectPages(n *html.Node, doc *Document) {
	if hasClass(n, "ocr_page") {
		doc.Pages = append(doc.Pages, parsePage(n))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectPages(c, doc)
	}
}

func parsePage(n *html.Node) Page {
	props := titleProps(attr(n, "title"))
	page := Page{
		ID:   attr(n, "id"),
		BBox: propBBox(props),
	}
	if v, ok := props["ppageno"]; ok && len(v) > 0 {
		page.Number, _ = strconv.Atoi(v[0])
	}
	if v, ok := props["image"]; ok && len(v) > 0 {
		page.Image = strings.Trim(v[0], `"`)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLines(c, &page)
	}
	return page
}

// collectLines descends through the intermediate carea/par structure
// until it hits line elements.
func collectLines(n *html.Node, page *Page) {
	if hasClass(n, "ocr_line") || hasClass(n, "ocr_header") || hasClass(n, "ocr_caption") {
		page.Lines = append(page.Lines, parseLine(n))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLines(c, page)
	}
}

func parseLine(n *html.Node) Line {
	line := Line{BBox: propBBox(titleProps(attr(n, "title")))}
	var collectWords func(*html.Node)
	collectWords = func(node *html.Node) {
		if hasClass(node, "ocrx_word") {
			line.Words = append(line.Words, parseWord(node))
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collectWords(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectWords(c)
	}
	return line
}

func parseWord(n *html.Node) Word {
	props := titleProps(attr(n, "title"))
	word := Word{
		Text: textContent(n),
		BBox: propBBox(props),
	}
	if v, ok := props["x_wconf"]; ok && len(v) > 0 {
		word.Conf, _ = strconv.ParseFloat(v[0], 64)
	}
	return word
}

// titleProps splits an hOCR title attribute into its semicolon-limited
// properties, e.g. "bbox 1 2 3 4; x_wconf 95".
func titleProps(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

func propBBox(props map[string][]string) BBox {
	v, ok := props["bbox"]
	if !ok || len(v) < 4 {
		return BBox{}
	}
	var b BBox
	b.X0, _ = strconv.Atoi(v[0])
	b.Y0, _ = strconv.Atoi(v[1])
	b.X1, _ = strconv.Atoi(v[2])
	b.Y1, _ = strconv.Atoi(v[3])
	return b
}

func hasClass(n *html.Node, class string) bool {
	return n.Type == html.ElementNode && strings.Contains(attr(n, "class"), class)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return strings.TrimSpace(sb.String())
}
