package types

import (
	"strconv"

	"github.com/pkg/errors"
)

// ParseType parses the textual type grammar of §6 — the stable
// pretty-printed forms ("Int32", "T*", "T[n]", "Vector<T, n>",
// "{ name:T, ... }") — back into a Type. For a non-recursive type built
// only from those forms, ParseType(t.String()) equals t. Function types
// and typedefs have no form in this grammar: FunctionType.String's output
// is rejected, and a typedef prints as its bare name, which is rejected
// unless it happens to spell a built-in type name (e.g. "Int" and "Char"
// are rejected).
//
// This is deliberately NOT the C-like front-end parser (out of scope per
// §1): it understands only type syntax, nothing about expressions,
// statements, or declarations.
type parser struct {
	lex *lexer
	cur token
}

// ErrParse is wrapped by ParseType on malformed input.
var ErrParse = errors.New("types: malformed type expression")

// ParseType parses a single type expression.
func ParseType(src string) (Type, error) {
	p := &parser{lex: newLexer(src)}
	p.advance()

	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, errors.Wrapf(ErrParse, "unexpected trailing input at %s", p.cur.pos)
	}
	return t, nil
}

func (p *parser) advance() { p.cur = p.lex.next() }

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur.kind != k {
		return token{}, errors.Wrapf(ErrParse, "expected %s at %s, got %q", what, p.cur.pos, p.cur.text)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *parser) parseType() (Type, error) {
	base, err := p.parseBase()
	if err != nil {
		return nil, err
	}

	for {
		switch p.cur.kind {
		case tokStar:
			p.advance()
			base = NewPointer(base)
		case tokLBracket:
			p.advance()
			n, err := p.expect(tokNumber, "array length")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "]"); err != nil {
				return nil, err
			}
			count, _ := strconv.Atoi(n.text)
			base = NewArray(base, count)
		default:
			return base, nil
		}
	}
}

func (p *parser) parseBase() (Type, error) {
	switch p.cur.kind {
	case tokLBrace:
		return p.parseStruct()
	case tokIdent:
		name := p.cur.text
		p.advance()
		if name == "Vector" {
			return p.parseVector()
		}
		return scalarByName(name)
	default:
		return nil, errors.Wrapf(ErrParse, "expected a type at %s, got %q", p.cur.pos, p.cur.text)
	}
}

func (p *parser) parseVector() (Type, error) {
	if _, err := p.expect(tokLAngle, "<"); err != nil {
		return nil, err
	}
	base, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, ","); err != nil {
		return nil, err
	}
	n, err := p.expect(tokNumber, "vector length")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRAngle, ">"); err != nil {
		return nil, err
	}
	count, _ := strconv.Atoi(n.text)
	return NewVector(base, count), nil
}

func (p *parser) parseStruct() (Type, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}

	st := NewEmptyStruct()
	if p.cur.kind != tokRBrace {
		for {
			name, err := p.expect(tokIdent, "field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon, ":"); err != nil {
				return nil, err
			}
			ft, err := p.parseType()
			if err != nil {
				return nil, err
			}
			st.Append(name.text, ft)

			if p.cur.kind != tokComma {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}
	return st, nil
}

func scalarByName(name string) (Type, error) {
	switch name {
	case "Void":
		return Void, nil
	case "Bool":
		return Bool, nil
	case "Bytes":
		return Bytes, nil
	case "Opaque":
		return Opaque, nil
	case "Exception":
		return Exception, nil
	case "Float32":
		return Float32, nil
	case "Float64":
		return Float64, nil
	}

	if bits, ok := trimIntBits(name, "UInt"); ok {
		return &IntType{Bits: bits, Unsigned: true}, nil
	}
	if bits, ok := trimIntBits(name, "Int"); ok {
		return &IntType{Bits: bits}, nil
	}

	return nil, errors.Wrapf(ErrParse, "unknown type name %q", name)
}

func trimIntBits(name, prefix string) (int, bool) {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return 0, false
	}
	bits, err := strconv.Atoi(name[len(prefix):])
	if err != nil {
		return 0, false
	}
	return bits, true
}
