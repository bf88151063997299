package sql

import (
	"database/sql/driver"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/syssam/signet"
)

// ExpandedParam describes one parameter occurrence after expansion.
type ExpandedParam struct {
	Name  string // Parameter name, or "?N" for the N-th positional parameter.
	Start int    // 1-based position of the first placeholder.
	Count int    // Number of placeholders: 1 for scalars, N for collections.
}

// Expansion is the result of expanding the parameters of a query.
type Expansion struct {
	SQL    string
	Params []ExpandedParam
	// Args holds the driver arguments in position order, with collections
	// flattened.
	Args []any
}

// ExpandOption configures the parameter scanner.
type ExpandOption func(*scanner)

// WithBackslashEscapes makes a backslash escape the next character inside
// quoted text, as MySQL and MariaDB do by default. Without it a backslash
// is an ordinary character, as in standard SQL.
func WithBackslashEscapes() ExpandOption {
	return func(s *scanner) {
		s.backslash = true
	}
}

// ExpandNamed rewrites the :name parameters of query into placeholders.
// A parameter bound to a slice or array, other than []byte or a
// driver.Valuer, is expanded into one placeholder per element, and the
// positions of all subsequent parameters shift accordingly. Quoted text,
// comments and "::" casts are left untouched.
//
// An empty collection, a parameter without a value, a value without a
// parameter or unterminated quoted text fails before any SQL is produced.
func ExpandNamed(query string, values map[string]any, ph Placeholder, opts ...ExpandOption) (*Expansion, error) {
	segs, err := scanParams(query, true, opts)
	if err != nil {
		return nil, err
	}
	var (
		vals = make([]any, 0, len(segs))
		used = make(map[string]struct{}, len(values))
	)
	for _, s := range segs {
		if !s.param {
			continue
		}
		v, ok := values[s.name]
		if !ok {
			return nil, &signet.UnknownParameterError{Name: s.name}
		}
		used[s.name] = struct{}{}
		vals = append(vals, v)
	}
	if len(used) < len(values) {
		names := make([]string, 0, len(values))
		for name := range values {
			if _, ok := used[name]; !ok {
				names = append(names, name)
			}
		}
		slices.Sort(names)
		return nil, &signet.UnknownParameterError{Name: names[0]}
	}
	return expand(segs, vals, ph)
}

// ExpandPositional is like ExpandNamed for queries using "?" parameters.
// The number of values must match the number of parameters.
func ExpandPositional(query string, values []any, ph Placeholder, opts ...ExpandOption) (*Expansion, error) {
	segs, err := scanParams(query, false, opts)
	if err != nil {
		return nil, err
	}
	var n int
	for _, s := range segs {
		if s.param {
			n++
			if n > len(values) {
				return nil, &signet.UnknownParameterError{Name: s.name}
			}
		}
	}
	if n < len(values) {
		return nil, &signet.UnknownParameterError{Name: "?" + strconv.Itoa(n+1)}
	}
	return expand(segs, values, ph)
}

// expand computes all positions up front, then renders the query.
func expand(segs []segment, vals []any, ph Placeholder) (*Expansion, error) {
	var (
		params = make([]ExpandedParam, 0, len(vals))
		args   = make([]any, 0, len(vals))
		pos    = 1
		i      int
	)
	for _, s := range segs {
		if !s.param {
			continue
		}
		elems, ok := collection(vals[i])
		i++
		if !ok {
			elems = []any{vals[i-1]}
		}
		if len(elems) == 0 {
			return nil, &signet.EmptyCollectionParameterError{Name: s.name}
		}
		params = append(params, ExpandedParam{Name: s.name, Start: pos, Count: len(elems)})
		args = append(args, elems...)
		pos += len(elems)
	}
	var b strings.Builder
	i = 0
	for _, s := range segs {
		if !s.param {
			b.WriteString(s.text)
			continue
		}
		p := params[i]
		for j := range p.Count {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ph(p.Start + j))
		}
		i++
	}
	return &Expansion{SQL: b.String(), Params: params, Args: args}, nil
}

// collection returns the elements of v if v is bound as a collection.
func collection(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.(driver.Valuer); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	default:
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

// segment is either a run of literal SQL text or a parameter reference.
type segment struct {
	text  string
	param bool
	name  string
}

type scanner struct {
	backslash bool
}

// scanParams splits query into text and parameter segments. Named mode
// recognizes :name, positional mode recognizes "?".
func scanParams(query string, named bool, opts []ExpandOption) ([]segment, error) {
	var sc scanner
	for _, opt := range opts {
		opt(&sc)
	}
	var (
		segs  []segment
		start int
		n     int
	)
	flush := func(end int) {
		if end > start {
			segs = append(segs, segment{text: query[start:end]})
		}
	}
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j, ok := sc.skipQuoted(query, i+1, c)
			if !ok {
				return nil, signet.NewConfigError("unterminated %c quoted text at offset %d", c, i)
			}
			i = j
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			if j := strings.IndexByte(query[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(query)
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			j := strings.Index(query[i+2:], "*/")
			if j < 0 {
				return nil, signet.NewConfigError("unterminated comment at offset %d", i)
			}
			i += j + 4
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			i += 2
		case named && c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 2
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			flush(i)
			segs = append(segs, segment{param: true, name: query[i+1 : j]})
			start, i = j, j
		case !named && c == '?':
			n++
			flush(i)
			segs = append(segs, segment{param: true, name: "?" + strconv.Itoa(n)})
			start, i = i+1, i+1
		default:
			i++
		}
	}
	flush(len(query))
	return segs, nil
}

// skipQuoted returns the index after the closing quote, and false if the
// quoted text is not terminated. Doubled quotes are part of the literal.
func (sc scanner) skipQuoted(query string, i int, quote byte) (int, bool) {
	for i < len(query) {
		switch c := query[i]; {
		case c == '\\' && sc.backslash:
			i += 2
		case c == quote:
			if i+1 < len(query) && query[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, true
		default:
			i++
		}
	}
	return len(query), false
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}
