package wiki

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Classes of parser output that carry no observance text.
var droppedClasses = []string{
	"mw-editsection",
	"mw-references-wrap",
	"mw-ext-cite-error",
	"mw-heading",
}

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]+`)
)

// ToMarkdown converts the .mw-parser-output part of a parsed section to
// markdown: ATX headings, "*" bullets and link text without targets.
// Edit links, references, citation errors and section headings are
// dropped. It returns "" when there is no parser output element.
func ToMarkdown(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	root := findClass(doc, "mw-parser-output")
	if root == nil {
		return "", nil
	}

	w := &mdWriter{}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, 0)
	}
	return cleanMarkdown(w.sb.String()), nil
}

type mdWriter struct {
	sb strings.Builder
}

func (w *mdWriter) node(n *html.Node, listDepth int) {
	switch n.Type {
	case html.TextNode:
		w.sb.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case html.ElementNode:
	default:
		return
	}
	if dropped(n) {
		return
	}

	switch n.Data {
	case "script", "style", "noscript":
		return
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(n.Data[1:])
		w.sb.WriteString("\n\n" + strings.Repeat("#", level) + " ")
		w.children(n, listDepth)
		w.sb.WriteString("\n\n")
		return
	case "p", "div", "dl":
		w.sb.WriteString("\n\n")
		w.children(n, listDepth)
		w.sb.WriteString("\n\n")
		return
	case "br":
		w.sb.WriteString("\n")
		return
	case "ul", "ol":
		w.list(n, listDepth)
		return
	case "dt":
		w.sb.WriteString("\n**")
		w.children(n, listDepth)
		w.sb.WriteString("**\n")
		return
	case "dd":
		w.sb.WriteString("\n")
		w.children(n, listDepth)
		w.sb.WriteString("\n")
		return
	case "strong", "b":
		w.wrap(n, listDepth, "**")
		return
	case "em", "i":
		w.wrap(n, listDepth, "_")
		return
	}
	// a, span and anything else contribute their text only.
	w.children(n, listDepth)
}

func (w *mdWriter) children(n *html.Node, listDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, listDepth)
	}
}

func (w *mdWriter) wrap(n *html.Node, listDepth int, delim string) {
	w.sb.WriteString(delim)
	w.children(n, listDepth)
	w.sb.WriteString(delim)
}

func (w *mdWriter) list(n *html.Node, depth int) {
	indent := strings.Repeat("    ", depth)
	ordered := n.Data == "ol"
	i := 0
	if depth == 0 {
		w.sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" || dropped(c) {
			continue
		}
		i++
		marker := "* "
		if ordered {
			marker = strconv.Itoa(i) + ". "
		}
		w.sb.WriteString("\n" + indent + marker)
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			w.node(cc, depth+1)
		}
	}
	if depth == 0 {
		w.sb.WriteString("\n\n")
	}
}

func dropped(n *html.Node) bool {
	if n.Data == "sup" && hasClass(n, "reference") {
		return true
	}
	for _, class := range droppedClasses {
		if hasClass(n, class) {
			return true
		}
	}
	return false
}

func findClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, f := range strings.Fields(attr.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}

var listItemPattern = regexp.MustCompile(`^(\*|\d+\.) `)

// cleanMarkdown collapses runs of spaces and blank lines and trims every
// line. List items keep their leading indentation.
func cleanMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(rest)]
		rest = strings.TrimSpace(multiSpacePattern.ReplaceAllString(rest, " "))
		if !listItemPattern.MatchString(rest + " ") {
			indent = ""
		}
		lines[i] = indent + rest
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
