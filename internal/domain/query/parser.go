package query

import (
	"strings"

	"github.com/kailas-cloud/trackdex/internal/domain"
)

// typePrefixes maps the grammar's qualifier spellings to key types. A bare
// identifier with no qualifier is an attribute.
var typePrefixes = map[string]KeyType{
	"metric":     TypeMetric,
	"metrics":    TypeMetric,
	"param":      TypeParameter,
	"params":     TypeParameter,
	"parameter":  TypeParameter,
	"parameters": TypeParameter,
	"tag":        TypeTag,
	"tags":       TypeTag,
	"attr":       TypeAttribute,
	"attribute":  TypeAttribute,
	"attributes": TypeAttribute,
	"run":        TypeAttribute,
}

// ParseFilter parses a filter string into clauses. Clauses are joined by AND;
// no other boolean connective is part of the grammar. An empty string yields
// no clauses.
func ParseFilter(s string) ([]Clause, error) {
	p := &parser{s: s}
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}

	var clauses []Clause
	for {
		c, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)

		p.skipSpace()
		if p.eof() {
			return clauses, nil
		}
		word := p.parseWord(isIdentChar)
		if !strings.EqualFold(word, "and") {
			return nil, domain.Errorf(domain.ErrInvalidArgument,
				"expected AND at position %d in filter %q", p.pos-len(word), s)
		}
	}
}

// ParseOrderBy parses order-by items of the form "qualified.key [ASC|DESC]".
// Direction defaults to ascending.
func ParseOrderBy(items []string) ([]OrderKey, error) {
	keys := make([]OrderKey, 0, len(items))
	for _, item := range items {
		p := &parser{s: item}
		p.skipSpace()
		typ, key, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}

		asc := true
		p.skipSpace()
		if !p.eof() {
			dir := p.parseWord(isIdentChar)
			switch {
			case strings.EqualFold(dir, "asc"):
			case strings.EqualFold(dir, "desc"):
				asc = false
			default:
				return nil, domain.Errorf(domain.ErrInvalidArgument,
					"invalid sort direction %q in %q", dir, item)
			}
			p.skipSpace()
		}
		if !p.eof() {
			return nil, domain.Errorf(domain.ErrInvalidArgument,
				"trailing input in order-by clause %q", item)
		}

		keys = append(keys, OrderKey{Type: typ, Key: key, Ascending: asc})
	}
	return keys, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte { return p.s[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t' || p.peek() == '\n') {
		p.pos++
	}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '-' || c == '/'
}

func isKeyChar(c byte) bool { return isIdentChar(c) || c == '.' }

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}

func (p *parser) parseWord(pred func(byte) bool) string {
	start := p.pos
	for !p.eof() && pred(p.peek()) {
		p.pos++
	}
	return p.s[start:p.pos]
}

// parseQuoted consumes a string delimited by the quote character at the
// current position.
func (p *parser) parseQuoted() (string, error) {
	quote := p.peek()
	p.pos++
	start := p.pos
	for !p.eof() {
		if p.peek() == quote {
			v := p.s[start:p.pos]
			p.pos++
			return v, nil
		}
		p.pos++
	}
	return "", domain.Errorf(domain.ErrInvalidArgument,
		"unterminated quoted value starting at position %d in %q", start-1, p.s)
}

// parseIdentifier reads "qualifier.key", where the key may be quoted with
// double quotes or backticks to allow dots, or a bare attribute name.
func (p *parser) parseIdentifier() (KeyType, string, error) {
	if p.eof() {
		return "", "", domain.Errorf(domain.ErrInvalidArgument, "missing identifier in %q", p.s)
	}
	first := p.parseWord(isIdentChar)
	if first == "" {
		return "", "", domain.Errorf(domain.ErrInvalidArgument,
			"invalid identifier at position %d in %q", p.pos, p.s)
	}

	if p.eof() || p.peek() != '.' {
		return TypeAttribute, first, nil
	}
	p.pos++ // consume '.'

	typ, ok := typePrefixes[strings.ToLower(first)]
	if !ok {
		return "", "", domain.Errorf(domain.ErrInvalidArgument,
			"invalid qualifier %q in %q", first, p.s)
	}

	var key string
	var err error
	if !p.eof() && (p.peek() == '"' || p.peek() == '`') {
		key, err = p.parseQuoted()
		if err != nil {
			return "", "", err
		}
	} else {
		key = p.parseWord(isKeyChar)
	}
	if key == "" {
		return "", "", domain.Errorf(domain.ErrInvalidArgument,
			"missing key after %q in %q", first, p.s)
	}
	return typ, key, nil
}

func (p *parser) parseComparator() (Comparator, error) {
	if p.pos+1 < len(p.s) {
		switch p.s[p.pos : p.pos+2] {
		case ">=":
			p.pos += 2
			return CompGTE, nil
		case "<=":
			p.pos += 2
			return CompLTE, nil
		case "!=":
			p.pos += 2
			return CompNE, nil
		}
	}
	switch p.peekOrZero() {
	case '>':
		p.pos++
		return CompGT, nil
	case '<':
		p.pos++
		return CompLT, nil
	case '=':
		p.pos++
		return CompEQ, nil
	}
	word := p.parseWord(isIdentChar)
	switch {
	case strings.EqualFold(word, "like"):
		return CompLike, nil
	case strings.EqualFold(word, "ilike"):
		return CompILike, nil
	}
	return "", domain.Errorf(domain.ErrInvalidArgument,
		"invalid comparator at position %d in %q", p.pos, p.s)
}

func (p *parser) peekOrZero() byte {
	if p.eof() {
		return 0
	}
	return p.peek()
}

func (p *parser) parseClause() (Clause, error) {
	typ, key, err := p.parseIdentifier()
	if err != nil {
		return Clause{}, err
	}

	p.skipSpace()
	cmp, err := p.parseComparator()
	if err != nil {
		return Clause{}, err
	}

	p.skipSpace()
	var value string
	switch {
	case p.eof():
		return Clause{}, domain.Errorf(domain.ErrInvalidArgument, "missing value in %q", p.s)
	case p.peek() == '\'' || p.peek() == '"':
		value, err = p.parseQuoted()
		if err != nil {
			return Clause{}, err
		}
	default:
		value = p.parseWord(isNumberChar)
		if value == "" {
			return Clause{}, domain.Errorf(domain.ErrInvalidArgument,
				"invalid value at position %d in %q: expected a quoted string or a number", p.pos, p.s)
		}
	}

	return Clause{Type: typ, Key: key, Comparator: cmp, Value: value}, nil
}
