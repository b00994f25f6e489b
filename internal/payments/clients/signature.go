package clients

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/exp/slices"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Signer computes and checks IPN signatures: hex HMAC-SHA512 of the payload
// re-serialized with sorted keys and compact separators.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(payload []byte) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha512.New, s.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *Signer) Verify(payload []byte, signature string) error {
	expected, err := s.Sign(payload)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Canonicalize re-encodes a JSON document byte-for-byte the way the processor
// signs it: object keys sorted by code point at every level, "," and ":"
// separators, no whitespace, non-ASCII escaped as \uXXXX and floats in
// shortest repr form. Duplicate keys keep the last value and unpaired
// surrogate escapes are carried through untouched.
func Canonicalize(payload []byte) ([]byte, error) {
	p := &canonicalParser{data: payload}

	p.skipSpace()
	out, err := p.value(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p.skipSpace()
	if p.pos != len(p.data) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrMalformedPayload, p.pos)
	}
	return out, nil
}

const maxCanonicalDepth = 512

// canonicalParser emits the canonical encoding of each value as it parses
// it. Strings are kept as code points so lone surrogates survive.
type canonicalParser struct {
	data []byte
	pos  int
}

type canonicalMember struct {
	key     []rune
	encoded []byte
	value   []byte
}

func (p *canonicalParser) peek() byte {
	if p.pos >= len(p.data) {
		return 0
	}
	return p.data[p.pos]
}

func (p *canonicalParser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *canonicalParser) value(depth int) ([]byte, error) {
	if depth > maxCanonicalDepth {
		return nil, errors.New("nesting too deep")
	}
	if p.pos >= len(p.data) {
		return nil, errors.New("unexpected end of input")
	}

	switch c := p.data[p.pos]; {
	case c == '{':
		return p.object(depth)
	case c == '[':
		return p.array(depth)
	case c == '"':
		s, err := p.string()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		writeString(&buf, s)
		return buf.Bytes(), nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		for _, lit := range []string{"null", "true", "false"} {
			if bytes.HasPrefix(p.data[p.pos:], []byte(lit)) {
				p.pos += len(lit)
				return []byte(lit), nil
			}
		}
		return nil, fmt.Errorf("unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *canonicalParser) object(depth int) ([]byte, error) {
	p.pos++

	var members []canonicalMember
	index := make(map[string]int)

	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return []byte("{}"), nil
	}

	for {
		p.skipSpace()
		if p.peek() != '"' {
			return nil, fmt.Errorf("expected object key at offset %d", p.pos)
		}
		key, err := p.string()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipSpace()

		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}

		var encoded bytes.Buffer
		writeString(&encoded, key)
		if i, ok := index[encoded.String()]; ok {
			members[i].value = val
		} else {
			index[encoded.String()] = len(members)
			members = append(members, canonicalMember{key: key, encoded: encoded.Bytes(), value: val})
		}

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
		default:
			return nil, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
		}
		break
	}

	slices.SortFunc(members, func(a, b canonicalMember) bool {
		return slices.Compare(a.key, b.key) < 0
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(m.encoded)
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *canonicalParser) array(depth int) ([]byte, error) {
	p.pos++

	var buf bytes.Buffer
	buf.WriteByte('[')

	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}

	for first := true; ; first = false {
		p.skipSpace()
		val, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.Write(val)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			buf.WriteByte(']')
			return buf.Bytes(), nil
		default:
			return nil, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}
}

func (p *canonicalParser) string() ([]rune, error) {
	p.pos++

	out := []rune{}
	for {
		if p.pos >= len(p.data) {
			return nil, errors.New("unterminated string")
		}

		c := p.data[p.pos]
		switch {
		case c == '"':
			p.pos++
			return out, nil
		case c < 0x20:
			return nil, fmt.Errorf("control character in string at offset %d", p.pos)
		case c == '\\':
			r, err := p.escape()
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		case c < utf8.RuneSelf:
			out = append(out, rune(c))
			p.pos++
		default:
			r, size := utf8.DecodeRune(p.data[p.pos:])
			out = append(out, r)
			p.pos += size
		}
	}
}

func (p *canonicalParser) escape() (rune, error) {
	if p.pos+1 >= len(p.data) {
		return 0, errors.New("unterminated escape")
	}
	e := p.data[p.pos+1]
	p.pos += 2

	switch e {
	case '"', '\\', '/':
		return rune(e), nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		r, err := p.hex4()
		if err != nil {
			return 0, err
		}
		// A high surrogate only pairs with an immediately following low one.
		if r >= 0xd800 && r <= 0xdbff && bytes.HasPrefix(p.data[p.pos:], []byte(`\u`)) {
			save := p.pos
			p.pos += 2
			lo, err := p.hex4()
			if err == nil && lo >= 0xdc00 && lo <= 0xdfff {
				return utf16.DecodeRune(r, lo), nil
			}
			p.pos = save
		}
		return r, nil
	default:
		return 0, fmt.Errorf("invalid escape %q at offset %d", e, p.pos-1)
	}
}

func (p *canonicalParser) hex4() (rune, error) {
	if p.pos+4 > len(p.data) {
		return 0, errors.New("truncated \\u escape")
	}
	v, err := strconv.ParseUint(string(p.data[p.pos:p.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape at offset %d", p.pos)
	}
	p.pos += 4
	return rune(v), nil
}

func (p *canonicalParser) number() ([]byte, error) {
	start := p.pos
	digits := func() int {
		n := 0
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
			n++
		}
		return n
	}

	if p.peek() == '-' {
		p.pos++
	}
	switch c := p.peek(); {
	case c == '0':
		p.pos++
	case c >= '1' && c <= '9':
		digits()
	default:
		return nil, fmt.Errorf("invalid number at offset %d", start)
	}

	if p.peek() == '.' {
		p.pos++
		if digits() == 0 {
			return nil, fmt.Errorf("invalid fraction at offset %d", start)
		}
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if digits() == 0 {
			return nil, fmt.Errorf("invalid exponent at offset %d", start)
		}
	}

	n, err := formatNumber(string(p.data[start:p.pos]))
	if err != nil {
		return nil, err
	}
	return []byte(n), nil
}

func formatNumber(s string) (string, error) {
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return "", fmt.Errorf("bad integer %q", s)
		}
		return i.String(), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return "", fmt.Errorf("bad number %q", s)
	}
	return floatRepr(f), nil
}

// floatRepr renders f as the shortest round-tripping decimal, switching to
// exponent notation below 1e-4 and from 1e16 up, always keeping a fraction
// in positional form ("100.0"). Overflowed values print as Infinity.
func floatRepr(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	exp := strconv.FormatFloat(f, 'e', -1, 64)
	e, _ := strconv.Atoi(exp[strings.IndexByte(exp, 'e')+1:])
	if e < -4 || e >= 16 {
		return exp
	}

	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}

// writeString quotes s with every code point outside printable ASCII as a
// \u escape. Unpaired surrogates are written as their own escape.
func writeString(buf *bytes.Buffer, s []rune) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				buf.WriteByte(byte(r))
			case r < 0x10000:
				fmt.Fprintf(buf, `\u%04x`, r)
			default:
				r1, r2 := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
			}
		}
	}
	buf.WriteByte('"')
}
