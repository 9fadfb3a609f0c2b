// Package formula parses chemical formulas into element compositions and
// handles the physical-state suffix carried by thermodynamic table entries.
package formula

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/alchemist/pkg/errors"
)

// ChargeKey is the Composition key that stores net charge.
const ChargeKey = 0

// Composition maps atomic number to atom count. Key 0 holds the net charge.
type Composition map[int]int

// ErrInvalidFormula is returned for unparseable formulas.
var ErrInvalidFormula = errors.New(errors.CodeFormulaInvalid, "invalid chemical formula")

var chargeRe = regexp.MustCompile(`([+-])(\d*)$`)

// Parse parses f into a Composition. Any state suffix is ignored.
//
//	Parse("Ca(OH)2")     → {1:2, 8:2, 20:1}
//	Parse("CuSO4.5H2O")  → {1:10, 8:9, 16:1, 29:1}
//	Parse("CO3-2")       → {0:-2, 6:1, 8:3}
func Parse(f string) (Composition, error) {
	s := strings.TrimSpace(SeparateState(strings.TrimSpace(f)))
	if s == "" {
		return nil, ErrInvalidFormula.WithDetail("empty formula")
	}

	comp := Composition{}
	if m := chargeRe.FindStringSubmatchIndex(s); m != nil {
		mag := 1
		if m[5] > m[4] {
			n, err := strconv.Atoi(s[m[4]:m[5]])
			if err != nil || n == 0 {
				return nil, ErrInvalidFormula.WithDetail(f)
			}
			mag = n
		}
		if s[m[2]] == '-' {
			mag = -mag
		}
		comp[ChargeKey] = mag
		s = s[:m[0]]
		if s == "" {
			return nil, ErrInvalidFormula.WithDetail(f)
		}
	}

	for _, part := range strings.FieldsFunc(s, isHydrateSep) {
		mult, rest := leadingInt(part)
		if rest == "" {
			return nil, ErrInvalidFormula.WithDetail(f)
		}
		p := &parser{s: rest}
		sub, err := p.parseSeq(0)
		if err != nil {
			return nil, ErrInvalidFormula.WithDetail(fmt.Sprintf("%s: %s", f, err.Error()))
		}
		comp.add(sub, mult)
	}

	if !comp.hasAtoms() {
		return nil, ErrInvalidFormula.WithDetail(f)
	}
	return comp, nil
}

// MustParse is Parse for static inputs; it panics on error.
func MustParse(f string) Composition {
	c, err := Parse(f)
	if err != nil {
		panic(err)
	}
	return c
}

func isHydrateSep(r rune) bool {
	return r == '.' || r == '·' || r == '*'
}

func leadingInt(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 1, s
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}

type parser struct {
	s string
	i int
}

func (p *parser) parseSeq(closing byte) (Composition, error) {
	comp := Composition{}
	for p.i < len(p.s) {
		c := p.s[p.i]
		switch {
		case c == '(' || c == '[':
			p.i++
			want := byte(')')
			if c == '[' {
				want = ']'
			}
			inner, err := p.parseSeq(want)
			if err != nil {
				return nil, err
			}
			comp.add(inner, p.count())
		case c == ')' || c == ']':
			if c != closing {
				return nil, fmt.Errorf("unexpected %q at %d", c, p.i)
			}
			p.i++
			return comp, nil
		case c >= 'A' && c <= 'Z':
			start := p.i
			p.i++
			for p.i < len(p.s) && p.s[p.i] >= 'a' && p.s[p.i] <= 'z' {
				p.i++
			}
			sym := p.s[start:p.i]
			z, ok := AtomicNumber(sym)
			if !ok {
				return nil, fmt.Errorf("unknown element %q", sym)
			}
			comp[z] += p.count()
		default:
			return nil, fmt.Errorf("unexpected %q at %d", c, p.i)
		}
	}
	if closing != 0 {
		return nil, fmt.Errorf("missing %q", closing)
	}
	return comp, nil
}

func (p *parser) count() int {
	start := p.i
	for p.i < len(p.s) && p.s[p.i] >= '0' && p.s[p.i] <= '9' {
		p.i++
	}
	if p.i == start {
		return 1
	}
	n, _ := strconv.Atoi(p.s[start:p.i])
	return n
}

func (c Composition) add(o Composition, mult int) {
	for k, v := range o {
		c[k] += v * mult
	}
}

func (c Composition) hasAtoms() bool {
	for k, v := range c {
		if k != ChargeKey && v != 0 {
			return true
		}
	}
	return false
}

// Elements returns the sorted keys with non-zero counts. Key 0 is present
// only when the composition is charged.
func (c Composition) Elements() []int {
	out := make([]int, 0, len(c))
	for k, v := range c {
		if v != 0 {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// Charge returns the net charge.
func (c Composition) Charge() int { return c[ChargeKey] }

// Equal compares non-zero counts, charge included.
func (c Composition) Equal(o Composition) bool {
	for k, v := range c {
		if o[k] != v {
			return false
		}
	}
	for k, v := range o {
		if c[k] != v {
			return false
		}
	}
	return true
}

// String renders c in Hill order (C, H, then alphabetical) with a trailing
// charge, e.g. "CH4", "CO3-2", "Na+".
func (c Composition) String() string {
	var syms []string
	counts := map[string]int{}
	for z, n := range c {
		if z == ChargeKey || n == 0 {
			continue
		}
		s := Symbol(z)
		syms = append(syms, s)
		counts[s] = n
	}
	_, hasC := counts["C"]
	sort.Slice(syms, func(i, j int) bool {
		ri, rj := hillRank(syms[i], hasC), hillRank(syms[j], hasC)
		if ri != rj {
			return ri < rj
		}
		return syms[i] < syms[j]
	})

	var b strings.Builder
	for _, s := range syms {
		b.WriteString(s)
		if n := counts[s]; n != 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	switch q := c.Charge(); {
	case q == 1:
		b.WriteString("+")
	case q == -1:
		b.WriteString("-")
	case q > 1:
		b.WriteString("+" + strconv.Itoa(q))
	case q < -1:
		b.WriteString(strconv.Itoa(q))
	}
	return b.String()
}

func hillRank(sym string, hasCarbon bool) int {
	if !hasCarbon {
		return 2
	}
	switch sym {
	case "C":
		return 0
	case "H":
		return 1
	}
	return 2
}
