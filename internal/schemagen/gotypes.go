package schemagen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mvdan.cc/gofumpt/format"

	"github.com/agentic-research/shape/internal/structure"
)

// GoTypes renders one Go struct per object node under rootType. Type names
// come from the node path, field names from header names and json tags
// from the original property names. Header names are generated first.
func GoTypes(tree *structure.Structure, rootType, pkg string) ([]byte, error) {
	tree.GenerateHeaderNames()
	idx, err := indexTree(tree)
	if err != nil {
		return nil, err
	}
	root := structure.NewNodePath(rootType)
	if _, ok := idx[root.Key()]; !ok {
		return nil, fmt.Errorf("unknown type %q", rootType)
	}

	g := &goGen{idx: idx, names: make(map[string]string), taken: make(map[string]bool)}
	g.collect(root)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by shape. DO NOT EDIT.\n\npackage %s\n", pkg)
	for _, p := range g.order {
		g.writeStruct(&buf, p)
	}
	out, err := format.Source(buf.Bytes(), format.Options{})
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return out, nil
}

type goGen struct {
	idx   index
	order []structure.NodePath
	names map[string]string // path key → Go type name
	taken map[string]bool
}

// collect names every object node in walk order.
func (g *goGen) collect(p structure.NodePath) {
	info, ok := g.idx[p.Key()]
	if !ok {
		return
	}
	if info.Type == structure.TypeObject {
		name := goIdent(structure.SafeHeaderName(structure.TypeName(p)))
		base := name
		for i := 2; g.taken[name]; i++ {
			name = base + strconv.Itoa(i)
		}
		g.taken[name] = true
		g.names[p.Key()] = name
		g.order = append(g.order, p)
	}
	for _, c := range info.Children {
		g.collect(p.Child(c))
	}
}

func (g *goGen) goType(p structure.NodePath) string {
	info, ok := g.idx[p.Key()]
	if !ok {
		return "any"
	}
	switch info.Type {
	case structure.TypeObject:
		return "*" + g.names[p.Key()]
	case structure.TypeArray:
		return "[]" + g.goType(p.Child(structure.ArrayMarker))
	case structure.TypeString:
		return "string"
	case structure.TypeInteger:
		return "int64"
	case structure.TypeDouble:
		return "float64"
	case structure.TypeBoolean:
		return "bool"
	}
	return "any"
}

func (g *goGen) writeStruct(buf *bytes.Buffer, p structure.NodePath) {
	info := g.idx[p.Key()]
	fmt.Fprintf(buf, "\n// %s is the shape of %q.\ntype %s struct {\n", g.names[p.Key()], p.String(), g.names[p.Key()])
	fields := make(map[string]bool)
	for _, c := range info.Children {
		if c == structure.ArrayMarker {
			continue
		}
		cp := p.Child(c)
		ci := g.idx[cp.Key()]
		header := ci.HeaderName
		if header == "" {
			header = structure.SafeHeaderName(c)
		}
		field := goIdent(header)
		base := field
		for i := 2; fields[field]; i++ {
			field = base + strconv.Itoa(i)
		}
		fields[field] = true
		fmt.Fprintf(buf, "%s %s %s\n", field, g.goType(cp), jsonTag(c))
	}
	buf.WriteString("}\n")
}

// goIdent turns a snake_case name into an exported identifier.
func goIdent(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	id := b.String()
	if id == "" {
		return "Data"
	}
	if !unicode.IsLetter([]rune(id)[0]) {
		id = "X" + id
	}
	return id
}

func jsonTag(name string) string {
	tag := "json:" + strconv.Quote(name+",omitempty")
	if strings.ContainsRune(tag, '`') {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}
