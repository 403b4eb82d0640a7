package capi

import (
	"fmt"
	"strings"
)

const maxNestingDepth = 30

// itemSpec is one compiled argument slot of a format string.
type itemSpec struct {
	code   byte        // primary code letter, or '(' for a nested group
	sub    byte        // 's' or 't' for encoded-string codes
	hash   bool        // '#' modifier: length-aware variant
	star   bool        // '*' modifier: bind through a buffer view
	bang   bool        // 'O!' type-checked object
	amp    bool        // 'O&' converter
	nested *Descriptor // group items for '('
}

// Descriptor is a compiled format string: the argument slots, the
// required/optional split, the keyword-only split and the diagnostics
// configuration carried after ':' or ';'.
type Descriptor struct {
	format  string
	fname   string
	message string
	items   []itemSpec
	min     int // arguments before '|'
	maxPos  int // arguments before '$'; len(items) when absent
	names   []string
}

// Min returns the number of required arguments.
func (d *Descriptor) Min() int { return d.min }

// Max returns the total number of argument slots.
func (d *Descriptor) Max() int { return len(d.items) }

// MaxPositional returns the number of slots that may be filled
// positionally.
func (d *Descriptor) MaxPositional() int { return d.maxPos }

// funcName returns the spelling used as the error prefix.
func (d *Descriptor) funcName() string {
	if d.fname != "" {
		return d.fname + "()"
	}
	return "function"
}

type formatError string

func fatalFormat(format, msg string) {
	panic(formatError(fmt.Sprintf("capi: bad argument format %q: %s", format, msg)))
}

// CompileFormat compiles and caches a format string. Malformed format
// strings are configuration errors, not runtime conditions: they are
// logged and abort via panic.
func (s *State) CompileFormat(format string, keywords []string) *Descriptor {
	key := format + "\x1f" + strings.Join(keywords, "\x1f")
	if d, ok := s.descCache[key]; ok {
		return d
	}
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(formatError); ok {
				s.log.Error().Str("format", format).Msg(string(fe))
			}
			panic(r)
		}
	}()
	d := compileFormat(format, keywords)
	s.descCache[key] = d
	return d
}

func compileFormat(format string, keywords []string) *Descriptor {
	d := &Descriptor{format: format, min: -1, maxPos: -1}
	i := 0
	sawDollar := false
	for i < len(format) {
		c := format[i]
		switch c {
		case '(':
			group, next := compileGroup(format, i+1, 1)
			d.items = append(d.items, itemSpec{code: '(', nested: group})
			i = next
		case ')':
			fatalFormat(format, "excess ')' in getargs format")
		case '|':
			if d.min >= 0 {
				fatalFormat(format, "Invalid format string (| specified twice)")
			}
			d.min = len(d.items)
			i++
		case '$':
			if d.min < 0 {
				fatalFormat(format, "Invalid format string ($ before |)")
			}
			if sawDollar {
				fatalFormat(format, "Invalid format string ($ specified twice)")
			}
			sawDollar = true
			d.maxPos = len(d.items)
			i++
		case ':':
			d.fname = format[i+1:]
			i = len(format)
		case ';':
			d.message = format[i+1:]
			i = len(format)
		case ' ', '\t':
			i++
		default:
			item, next := compileItem(format, i)
			d.items = append(d.items, item)
			i = next
		}
	}
	if d.min < 0 {
		d.min = len(d.items)
	}
	if d.maxPos < 0 {
		d.maxPos = len(d.items)
	}
	if keywords != nil {
		if len(keywords) < len(d.items) {
			fatalFormat(format, "more argument specifiers than keyword list entries")
		}
		if len(keywords) > len(d.items) {
			fatalFormat(format, "more keyword list entries than argument specifiers")
		}
		named := false
		for i, name := range keywords {
			if d.items[i].code == '(' {
				fatalFormat(format, "tuple found in format when using keyword arguments")
			}
			if name == "" {
				if named {
					fatalFormat(format, "Empty keyword parameter name")
				}
			} else {
				named = true
			}
		}
		d.names = keywords
	}
	return d
}

// compileGroup parses a parenthesized item group starting just past the
// opening paren and returns the next index past the closing one.
func compileGroup(format string, start, depth int) (*Descriptor, int) {
	if depth > maxNestingDepth {
		fatalFormat(format, "too many tuple nesting levels in argument format string")
	}
	group := &Descriptor{format: format}
	i := start
	for i < len(format) {
		switch format[i] {
		case ')':
			group.min = len(group.items)
			group.maxPos = len(group.items)
			return group, i + 1
		case '(':
			nested, next := compileGroup(format, i+1, depth+1)
			group.items = append(group.items, itemSpec{code: '(', nested: nested})
			i = next
		case '|', '$', ':', ';':
			fatalFormat(format, fmt.Sprintf("'%c' inside nested parameter list", format[i]))
		case ' ', '\t':
			i++
		default:
			item, next := compileItem(format, i)
			group.items = append(group.items, item)
			i = next
		}
	}
	fatalFormat(format, "missing ')' in getargs format")
	return nil, 0
}

// compileItem parses one item code with its modifiers and returns the
// next index.
func compileItem(format string, i int) (itemSpec, int) {
	c := format[i]
	item := itemSpec{code: c}
	i++
	switch c {
	case 'b', 'B', 'h', 'H', 'i', 'I', 'l', 'k', 'L', 'K', 'n',
		'f', 'd', 'D', 'c', 'C', 'p', 'S', 'Y', 'U':
	case 's', 'z', 'y':
		if i < len(format) {
			switch format[i] {
			case '#':
				item.hash = true
				i++
			case '*':
				item.star = true
				i++
			}
		}
	case 'u', 'Z':
		if i < len(format) && format[i] == '#' {
			item.hash = true
			i++
		}
	case 'w':
		if i >= len(format) || format[i] != '*' {
			fatalFormat(format, "invalid use of 'w' format character")
		}
		item.star = true
		i++
	case 'e':
		if i >= len(format) || (format[i] != 's' && format[i] != 't') {
			fatalFormat(format, "format specifier 'e' must be followed by 's' or 't'")
		}
		item.sub = format[i]
		i++
		if i < len(format) && format[i] == '#' {
			item.hash = true
			i++
		}
	case 'O':
		if i < len(format) {
			switch format[i] {
			case '!':
				item.bang = true
				i++
			case '&':
				item.amp = true
				i++
			}
		}
	default:
		fatalFormat(format, fmt.Sprintf("bad format char '%c'", c))
	}
	return item, i
}
