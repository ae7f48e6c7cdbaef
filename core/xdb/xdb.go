package xdb

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrParse is returned when a record is not well-formed XML.
var ErrParse = errors.New("record parse error")

// IndentSpaces is the indentation used for every serialized record.
const IndentSpaces = 4

// Parse reads an XDB record into a document.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	return doc, nil
}

// ParseElement parses a fragment and detaches its root element so it can be
// inserted into another document.
func ParseElement(data []byte) (*etree.Element, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	doc.RemoveChild(root)
	return root, nil
}

// Serialize indents the document and renders it as UTF-8 with short empty
// elements. A legacy encoding declared in the prolog is rewritten to UTF-8,
// since Parse has already decoded the text. Serializing a reparsed result
// yields the same bytes.
func Serialize(doc *etree.Document) ([]byte, error) {
	declareUTF8(doc)
	s := etree.NewIndentSettings()
	s.Spaces = IndentSpaces
	s.PreserveLeafWhitespace = true
	doc.IndentWithSettings(s)
	return doc.WriteToBytes()
}

var encodingDecl = regexp.MustCompile(`encoding\s*=\s*["']([^"']*)["']`)

func declareUTF8(doc *etree.Document) {
	for _, t := range doc.Child {
		pi, ok := t.(*etree.ProcInst)
		if !ok || pi.Target != "xml" {
			continue
		}
		m := encodingDecl.FindStringSubmatchIndex(pi.Inst)
		if m == nil || isUTF8(pi.Inst[m[2]:m[3]]) {
			continue
		}
		pi.Inst = pi.Inst[:m[0]] + `encoding="UTF-8"` + pi.Inst[m[1]:]
	}
}

func isUTF8(label string) bool {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// charsetReader decodes legacy encodings declared by some localized mods.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if isUTF8(label) {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// HrefPath returns the file part of an XPointer reference such as
// "/MapObjects/Haven/Knight.xdb#xpointer(/AdvMapHeroShared)".
func HrefPath(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

// Href returns the href attribute of el, or "" if el is nil or has none.
func Href(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("href", "")
}

// Text returns the text of the element at path below el, or "".
func Text(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	if found := el.FindElement(path); found != nil {
		return found.Text()
	}
	return ""
}

// ItemTexts returns the text of every child element of el in order.
func ItemTexts(el *etree.Element) []string {
	if el == nil {
		return nil
	}
	children := el.ChildElements()
	out := make([]string, 0, len(children))
	for _, c := range children {
		out = append(out, c.Text())
	}
	return out
}

// UnionItems appends an <Item> for each entry of items missing from el,
// preserving the order of items, and returns the number appended. With
// onlyIfNonEmpty set an empty list is left untouched, since an empty list
// already means "everything allowed" to the game.
func UnionItems(el *etree.Element, items []string, onlyIfNonEmpty bool) int {
	if el == nil {
		return 0
	}
	have := make(map[string]struct{})
	for _, t := range ItemTexts(el) {
		have[t] = struct{}{}
	}
	if onlyIfNonEmpty && len(have) == 0 {
		return 0
	}

	added := 0
	for _, item := range items {
		if _, ok := have[item]; ok {
			continue
		}
		el.CreateElement("Item").SetText(item)
		have[item] = struct{}{}
		added++
	}
	return added
}

// EmptyChild replaces the first child of parent named tag with an empty
// element at the same position. It reports whether the child existed.
func EmptyChild(parent *etree.Element, tag string) bool {
	if parent == nil {
		return false
	}
	old := parent.SelectElement(tag)
	if old == nil {
		return false
	}
	i := old.Index()
	parent.RemoveChildAt(i)
	parent.InsertChildAt(i, etree.NewElement(tag))
	return true
}
