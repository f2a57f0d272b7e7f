package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"KiranaCash/internal/domain/models"
)

// Breakdown maps a denomination key ("500") to a unit count.
type Breakdown map[string]int

// ParseBreakdown accepts a mapping, a JSON object string, a quoted-key
// literal such as {'50': 1, '20': 2}, or nil. Anything it cannot read
// exactly yields an empty Breakdown; it never returns an error.
func ParseBreakdown(raw any) Breakdown {
	switch v := raw.(type) {
	case nil:
		return Breakdown{}
	case Breakdown:
		return copyCounts(v)
	case map[string]int:
		return copyCounts(v)
	case map[string]any:
		return fromAny(v)
	case *string:
		if v == nil {
			return Breakdown{}
		}
		return parseString(*v)
	case string:
		return parseString(v)
	case []byte:
		return parseString(string(v))
	default:
		return Breakdown{}
	}
}

func parseString(s string) Breakdown {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || strings.EqualFold(s, "nan") {
		return Breakdown{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return fromAny(m)
	}
	if b, ok := parseLiteral(s); ok {
		return b
	}
	return Breakdown{}
}

func copyCounts(m map[string]int) Breakdown {
	out := make(Breakdown, len(m))
	for k, v := range m {
		if v < 0 {
			return Breakdown{}
		}
		out[strings.TrimSpace(k)] = v
	}
	return out
}

func fromAny(m map[string]any) Breakdown {
	out := make(Breakdown, len(m))
	for k, raw := range m {
		var f float64
		switch v := raw.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		case json.Number:
			n, err := v.Float64()
			if err != nil {
				return Breakdown{}
			}
			f = n
		case string:
			v = strings.TrimSpace(v)
			if v == "" || strings.TrimLeft(v, "0123456789") != "" {
				return Breakdown{}
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return Breakdown{}
			}
			f = float64(n)
		default:
			return Breakdown{}
		}
		if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
			return Breakdown{}
		}
		out[strings.TrimSpace(k)] = int(f)
	}
	return out
}

// parseLiteral reads { 'k': n, "k": n, ... } with quoted keys and
// non-negative integer values. A trailing comma is allowed.
func parseLiteral(s string) (Breakdown, bool) {
	p := &literalParser{src: s}
	out := Breakdown{}
	p.skipSpace()
	if !p.consume('{') {
		return nil, false
	}
	for {
		p.skipSpace()
		if p.consume('}') {
			break
		}
		key, ok := p.quoted()
		if !ok {
			return nil, false
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, false
		}
		p.skipSpace()
		n, ok := p.integer()
		if !ok {
			return nil, false
		}
		out[strings.TrimSpace(key)] = n
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			break
		}
		return nil, false
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, false
	}
	return out, true
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// quoted reads a '...' or "..." string without escapes.
func (p *literalParser) quoted() (string, bool) {
	if p.pos >= len(p.src) {
		return "", false
	}
	q := p.src[p.pos]
	if q != '\'' && q != '"' {
		return "", false
	}
	end := strings.IndexByte(p.src[p.pos+1:], q)
	if end < 0 {
		return "", false
	}
	s := p.src[p.pos+1 : p.pos+1+end]
	if strings.ContainsAny(s, "\\\n") {
		return "", false
	}
	p.pos += end + 2
	return s, true
}

func (p *literalParser) integer() (int, bool) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil || n > math.MaxInt32 {
		return 0, false
	}
	return n, true
}

// Encode renders b as canonical JSON (keys sorted). ParseBreakdown(Encode(b))
// equals b.
func Encode(b Breakdown) string {
	if b == nil {
		b = Breakdown{}
	}
	out, _ := json.Marshal(map[string]int(b))
	return string(out)
}

// CountVector projects b onto denoms. Missing keys count as zero.
func CountVector(b Breakdown, denoms models.Denominations) []int {
	out := make([]int, len(denoms))
	for i, d := range denoms {
		out[i] = b[strconv.Itoa(d)]
	}
	return out
}

// BreakdownFromCounts is the inverse of CountVector, dropping zero counts.
func BreakdownFromCounts(counts []int, denoms models.Denominations) Breakdown {
	out := Breakdown{}
	for i, d := range denoms {
		if i < len(counts) && counts[i] > 0 {
			out[strconv.Itoa(d)] = counts[i]
		}
	}
	return out
}
