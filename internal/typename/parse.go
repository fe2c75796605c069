package typename

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse reads C# type syntax using the default mapper
func Parse(text string) (*Descriptor, error) {
	return defaultMapper.Parse(text)
}

// Parse reads C# type syntax ("List<int>", "int[,][]", "System.String",
// "int?", "(int x, string)") into a descriptor. Keyword aliases are resolved
// through the mapper so "int" and "System.Int32" parse to the same type.
func (m *Mapper) Parse(text string) (*Descriptor, error) {
	p := &typeParser{src: []rune(text), mapper: m}
	d, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q at offset %d in type %q", string(p.src[p.pos]), p.pos, text)
	}
	return d, nil
}

type typeParser struct {
	src    []rune
	pos    int
	mapper *Mapper
}

func (p *typeParser) eof() bool { return p.pos >= len(p.src) }

func (p *typeParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *typeParser) expect(r rune) error {
	p.skipSpace()
	if p.peek() != r {
		if p.eof() {
			return fmt.Errorf("expected %q, got end of input", r)
		}
		return fmt.Errorf("expected %q at offset %d, got %q", r, p.pos, p.peek())
	}
	p.pos++
	return nil
}

func (p *typeParser) parseType() (*Descriptor, error) {
	p.skipSpace()
	var base *Descriptor
	var err error
	if p.peek() == '(' {
		base, err = p.parseTuple()
	} else {
		base, err = p.parseNamed()
	}
	if err != nil {
		return nil, err
	}
	return p.parseSuffixes(base)
}

func (p *typeParser) parseIdent() (string, error) {
	p.skipSpace()
	start := p.pos
	if !p.eof() && p.peek() == '@' {
		p.pos++
	}
	if !p.eof() && unicode.IsDigit(p.peek()) {
		return "", fmt.Errorf("identifier can't start with digit at offset %d", p.pos)
	}
	for !p.eof() {
		r := p.peek()
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if p.eof() {
			return "", fmt.Errorf("expected identifier, got end of input")
		}
		return "", fmt.Errorf("expected identifier at offset %d, got %q", p.pos, p.peek())
	}
	return strings.TrimPrefix(string(p.src[start:p.pos]), "@"), nil
}

func (p *typeParser) parseNamed() (*Descriptor, error) {
	first, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	parts := []string{first}
	for {
		p.skipSpace()
		if p.peek() != '.' {
			break
		}
		p.pos++
		next, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	// global::System.String
	if parts[0] == "global" && p.peek() == ':' {
		return nil, fmt.Errorf("alias qualifiers are not supported")
	}

	var args []*Descriptor
	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if err := p.expect('>'); err != nil {
				return nil, err
			}
			break
		}
	}

	if len(parts) == 1 && len(args) == 0 {
		if d := p.mapper.FullType(parts[0]); d != nil {
			return d, nil
		}
	}
	d := &Descriptor{
		Namespace: strings.Join(parts[:len(parts)-1], "."),
		Name:      parts[len(parts)-1],
		Args:      args,
	}
	return d, nil
}

func (p *typeParser) parseTuple() (*Descriptor, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var elems []*Descriptor
	for {
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.skipSpace()
		// optional element name
		if r := p.peek(); r == '_' || unicode.IsLetter(r) {
			if _, err := p.parseIdent(); err != nil {
				return nil, err
			}
			p.skipSpace()
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		break
	}
	if len(elems) < 2 {
		return nil, fmt.Errorf("tuple types need at least two elements")
	}
	return &Descriptor{Namespace: "System", Name: "ValueTuple", Args: elems}, nil
}

func (p *typeParser) parseSuffixes(base *Descriptor) (*Descriptor, error) {
	var ranks []int
	for {
		p.skipSpace()
		switch p.peek() {
		case '?':
			p.pos++
			if len(ranks) > 0 {
				// int[]? is a nullable reference to the array; the array shape is what matters
				continue
			}
			base = &Descriptor{Namespace: "System", Name: "Nullable", Args: []*Descriptor{base}}
			continue
		case '*':
			p.pos++
			continue
		case '[':
			p.pos++
			rank := 1
			for {
				p.skipSpace()
				r := p.peek()
				if r == ',' {
					rank++
					p.pos++
					continue
				}
				if r == ']' {
					p.pos++
					break
				}
				if p.eof() {
					return nil, fmt.Errorf("unterminated array rank specifier")
				}
				return nil, fmt.Errorf("unexpected %q in array rank specifier", r)
			}
			ranks = append(ranks, rank)
			continue
		}
		break
	}
	// The first rank specifier is the outermost array
	d := base
	for i := len(ranks) - 1; i >= 0; i-- {
		d = ArrayOf(d, ranks[i])
	}
	return d, nil
}
