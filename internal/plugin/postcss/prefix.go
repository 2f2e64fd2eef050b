package postcss

import (
	"bytes"
	"strings"
)

// propertyPrefixes lists the vendor prefixes emitted for each property.
var propertyPrefixes = map[string][]string{
	"animation":            {"-webkit-"},
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"backface-visibility":  {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask":                 {"-webkit-"},
	"mask-image":           {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-moz-", "-ms-"},
	"transform":            {"-webkit-", "-ms-"},
	"transition":           {"-webkit-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// valuePrefixes lists prefixed values emitted before a declaration, keyed
// by property and then by unprefixed value.
var valuePrefixes = map[string]map[string][]string{
	"display": {
		"flex":        {"-webkit-box", "-ms-flexbox"},
		"inline-flex": {"-webkit-inline-box", "-ms-inline-flexbox"},
	},
	"position": {
		"sticky": {"-webkit-sticky"},
	},
}

// Prefix inserts vendor-prefixed declarations in front of the declarations
// that need them. Declarations already present in a rule are never added
// again, so Prefix(Prefix(css)) == Prefix(css).
//
// Only innermost blocks are rewritten. Braces inside strings, comments or
// parentheses do not open or close a block.
func Prefix(css []byte) []byte {
	var (
		out   = make([]byte, 0, len(css))
		last  int
		open  = -1
		depth int
		quote byte
	)

	for i := 0; i < len(css); i++ {
		c := css[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := bytes.Index(css[i+2:], []byte("*/"))
			if end < 0 {
				i = len(css)
			} else {
				i += end + 3
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == '{':
			open = i
		case c == '}' && open >= 0:
			out = append(out, css[last:open+1]...)
			out = append(out, prefixBody(string(css[open+1:i]))...)
			out = append(out, '}')
			last = i + 1
			open = -1
		case c == '}':
			open = -1
		}
	}

	return append(out, css[last:]...)
}

type declaration struct {
	raw   string
	lead  string
	prop  string
	value string
}

func prefixBody(body string) string {
	segments := splitDeclarations(body)
	decls := make([]declaration, len(segments))
	present := make(map[string]struct{})

	for i, s := range segments {
		d := declaration{raw: s}

		trimmed := strings.TrimLeft(s, " \t\r\n")
		d.lead = s[:len(s)-len(trimmed)]

		if prop, value, ok := strings.Cut(strings.TrimSuffix(strings.TrimSpace(trimmed), ";"), ":"); ok {
			d.prop = strings.ToLower(strings.TrimSpace(prop))
			d.value = strings.TrimSpace(value)
			present[d.prop] = struct{}{}
			present[d.prop+":"+strings.ToLower(d.value)] = struct{}{}
		}

		decls[i] = d
	}

	var b strings.Builder

	for _, d := range decls {
		if d.prop == "" {
			b.WriteString(d.raw)
			continue
		}

		for _, p := range propertyPrefixes[d.prop] {
			if _, ok := present[p+d.prop]; ok {
				continue
			}

			b.WriteString(d.lead + p + d.prop + ": " + d.value + ";")
		}

		for _, v := range valuePrefixes[d.prop][strings.ToLower(d.value)] {
			if _, ok := present[d.prop+":"+v]; ok {
				continue
			}

			b.WriteString(d.lead + d.prop + ": " + v + ";")
		}

		b.WriteString(d.raw)
	}

	return b.String()
}

// splitDeclarations splits a rule body after each top-level semicolon,
// keeping separators and whitespace so the pieces concatenate back to body.
// Semicolons inside quotes or parentheses (data URIs) do not split.
func splitDeclarations(body string) []string {
	var (
		out   []string
		start int
		depth int
		quote byte
	)

	for i := 0; i < len(body); i++ {
		c := body[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ';' && depth == 0:
			out = append(out, body[start:i+1])
			start = i + 1
		}
	}

	if start < len(body) {
		out = append(out, body[start:])
	}

	return out
}
