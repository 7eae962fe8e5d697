package decl

import "strings"

// SplitGeneric decomposes "Box<String>" or "Box[pkg.Item, int]" into the
// base name and the top-level argument strings. ok is false when s has no
// well-formed argument list.
func SplitGeneric(s string) (base string, args []string, ok bool) {
	s = strings.TrimSpace(s)
	open := strings.IndexAny(s, "<[")
	if open <= 0 {
		return s, nil, false
	}
	closer := byte(']')
	if s[open] == '<' {
		closer = '>'
	}
	if s[len(s)-1] != closer {
		return s, nil, false
	}
	inner := s[open+1 : len(s)-1]
	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<', '[':
			depth++
		case '>', ']':
			depth--
			if depth < 0 {
				return s, nil, false
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return s, nil, false
	}
	if last := strings.TrimSpace(inner[start:]); last != "" {
		args = append(args, last)
	}
	if len(args) == 0 {
		return s, nil, false
	}
	return s[:open], args, true
}

// SplitQualified splits "example.com/pkg.Name[...]" into the package path
// and the name. Dots inside an argument list are ignored.
func SplitQualified(s string) (pkg, name string) {
	end := strings.IndexAny(s, "<[")
	if end < 0 {
		end = len(s)
	}
	i := strings.LastIndex(s[:end], ".")
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+1:]
}

// SimpleName strips the package path and any argument list from s.
func SimpleName(s string) string {
	_, name := SplitQualified(s)
	if i := strings.IndexAny(name, "<["); i >= 0 {
		return name[:i]
	}
	return name
}
