package depict

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidSMILES is wrapped by every SMILES syntax error.
var ErrInvalidSMILES = errors.New("invalid SMILES")

// Atom is one atom of a parsed molecule.
type Atom struct {
	Element  string // element symbol with normal capitalization, "*" for wildcard
	Aromatic bool
	Charge   int
	Isotope  int
	HCount   int // hydrogens; explicit in brackets, derived otherwise
	Bracket  bool
}

// Bond joins two atoms by index.
type Bond struct {
	From, To int
	Order    int // 1, 2, 3 or 4; aromatic bonds are 1 with Aromatic set
	Aromatic bool
}

// Molecule is the connection table of a parsed SMILES string.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond
}

// Degree returns the number of bonds on atom i.
func (m *Molecule) Degree(i int) int {
	d := 0
	for _, b := range m.Bonds {
		if b.From == i || b.To == i {
			d++
		}
	}
	return d
}

// organic subset and the valences used to derive implicit hydrogens.
var organic = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5}, "S": {2, 4, 6},
	"F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

// two-letter aromatic symbols allowed in brackets
var aromaticBracket = []string{"se", "as", "te"}

var chiralClasses = []string{"TH", "AL", "SP", "TB", "OH"}

var elements = strings.Fields(`H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr
Mn Fe Co Ni Cu Zn Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs
Ba La Ce Pr Nd Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn
Fr Ra Ac Th Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og`)

var elementSet = func() map[string]bool {
	m := make(map[string]bool, len(elements))
	for _, e := range elements {
		m[e] = true
	}
	return m
}()

type ringBond struct {
	atom int
	bond byte
}

type parser struct {
	s       string
	pos     int
	mol     Molecule
	prev    int
	bond    byte
	branch  []int
	rings   map[int]ringBond
	pending []int // atoms without explicit hydrogen count
}

// ParseSMILES parses a SMILES string into a molecule. Stereo markers are
// accepted and ignored. Reaction SMILES (containing '>') are rejected.
func ParseSMILES(s string) (*Molecule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSMILES)
	}
	p := &parser{s: s, prev: -1, rings: map[int]ringBond{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	p.fillHydrogens()
	return &p.mol, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at position %d in %q", ErrInvalidSMILES, fmt.Sprintf(format, args...), p.pos, p.s)
}

func (p *parser) parse() error {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errorf("branch without atom")
			}
			p.branch = append(p.branch, p.prev)
			p.pos++
		case c == ')':
			if len(p.branch) == 0 {
				return p.errorf("unbalanced ')'")
			}
			if p.bond != 0 {
				return p.errorf("bond before ')'")
			}
			p.prev = p.branch[len(p.branch)-1]
			p.branch = p.branch[:len(p.branch)-1]
			p.pos++
		case strings.IndexByte("-=#$:/\\", c) >= 0:
			if p.bond != 0 {
				return p.errorf("consecutive bonds")
			}
			if p.prev < 0 {
				return p.errorf("bond without atom")
			}
			p.bond = c
			p.pos++
		case c == '.':
			if p.bond != 0 {
				return p.errorf("bond before '.'")
			}
			p.prev = -1
			p.pos++
		case c >= '0' && c <= '9', c == '%':
			if err := p.ring(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		case c == '>':
			return p.errorf("reaction SMILES not supported")
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	switch {
	case len(p.branch) > 0:
		return p.errorf("unclosed branch")
	case len(p.rings) > 0:
		return p.errorf("unclosed ring")
	case p.bond != 0:
		return p.errorf("dangling bond")
	case len(p.mol.Atoms) == 0:
		return p.errorf("no atoms")
	}
	return nil
}

func (p *parser) ring() error {
	if p.prev < 0 {
		return p.errorf("ring closure without atom")
	}
	var n int
	if p.s[p.pos] == '%' {
		if p.pos+2 >= len(p.s) || !isDigit(p.s[p.pos+1]) || !isDigit(p.s[p.pos+2]) {
			return p.errorf("bad ring number")
		}
		n = int(p.s[p.pos+1]-'0')*10 + int(p.s[p.pos+2]-'0')
		p.pos += 3
	} else {
		n = int(p.s[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[n]
	if !ok {
		p.rings[n] = ringBond{atom: p.prev, bond: p.bond}
		p.bond = 0
		return nil
	}
	delete(p.rings, n)
	if open.atom == p.prev {
		return p.errorf("ring bond to itself")
	}
	sym := p.bond
	if sym == 0 {
		sym = open.bond
	} else if open.bond != 0 && open.bond != sym && !isDirectional(open.bond) && !isDirectional(sym) {
		return p.errorf("conflicting ring bond")
	}
	p.addBond(open.atom, p.prev, sym)
	p.bond = 0
	return nil
}

func (p *parser) organicAtom() error {
	c := p.s[p.pos]
	var a Atom
	switch {
	case c == '*':
		a.Element = "*"
		p.pos++
	case c == 'C' && p.peek(1) == 'l':
		a.Element = "Cl"
		p.pos += 2
	case c == 'B' && p.peek(1) == 'r':
		a.Element = "Br"
		p.pos += 2
	case strings.IndexByte("BCNOPSFI", c) >= 0:
		a.Element = string(c)
		p.pos++
	case strings.IndexByte("bcnops", c) >= 0:
		a.Element = strings.ToUpper(string(c))
		a.Aromatic = true
		p.pos++
	default:
		return p.errorf("unexpected %q", c)
	}
	p.pending = append(p.pending, p.addAtom(a))
	return nil
}

func (p *parser) bracketAtom() error {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return p.errorf("unclosed '['")
	}
	body := p.s[p.pos+1 : p.pos+end]
	start := p.pos
	p.pos += end + 1

	a := Atom{Bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Element = "*"
		i++
	case i+1 < len(body) && slices.Contains(aromaticBracket, body[i:i+2]):
		a.Element = strings.ToUpper(body[i:i+1]) + body[i+1:i+2]
		a.Aromatic = true
		i += 2
	case i < len(body) && strings.IndexByte("bcnops", body[i]) >= 0:
		a.Element = strings.ToUpper(body[i : i+1])
		a.Aromatic = true
		i++
	case i < len(body) && body[i] >= 'A' && body[i] <= 'Z':
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' && elementSet[body[i:i+2]] {
			a.Element = body[i : i+2]
			i += 2
		} else {
			a.Element = body[i : i+1]
			i++
		}
		if !elementSet[a.Element] {
			p.pos = start
			return p.errorf("unknown element %q", a.Element)
		}
	default:
		p.pos = start
		return p.errorf("missing element in %q", body)
	}

	chiral := false
	for i < len(body) && body[i] == '@' {
		chiral = true
		i++
	}
	if chiral && i+1 < len(body) && slices.Contains(chiralClasses, body[i:i+2]) {
		i += 2
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = 0
			for i < len(body) && isDigit(body[i]) {
				a.HCount = a.HCount*10 + int(body[i]-'0')
				i++
			}
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		switch {
		case i < len(body) && isDigit(body[i]):
			n := 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
			a.Charge = sign * n
		default:
			n := 1
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
			a.Charge = sign * n
		}
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && isDigit(body[i]) {
			i++
		}
	}
	if i != len(body) {
		p.pos = start
		return p.errorf("unexpected %q in bracket atom", body[i:])
	}
	p.addAtom(a)
	return nil
}

func (p *parser) addAtom(a Atom) int {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)
	if p.prev >= 0 {
		p.addBond(p.prev, idx, p.bond)
	}
	p.prev = idx
	p.bond = 0
	return idx
}

func (p *parser) addBond(from, to int, sym byte) {
	b := Bond{From: from, To: to, Order: 1}
	switch sym {
	case '=':
		b.Order = 2
	case '#':
		b.Order = 3
	case '$':
		b.Order = 4
	case ':':
		b.Aromatic = true
	case 0:
		b.Aromatic = p.mol.Atoms[from].Aromatic && p.mol.Atoms[to].Aromatic
	}
	p.mol.Bonds = append(p.mol.Bonds, b)
}

// fillHydrogens derives implicit hydrogen counts for organic-subset atoms
// from their lowest standard valence that fits the bonds present.
func (p *parser) fillHydrogens() {
	for _, i := range p.pending {
		a := &p.mol.Atoms[i]
		vals, ok := organic[a.Element]
		if !ok {
			continue
		}
		used := 0
		for _, b := range p.mol.Bonds {
			if b.From == i || b.To == i {
				used += b.Order
			}
		}
		if a.Aromatic {
			used++
		}
		for _, v := range vals {
			if v >= used {
				a.HCount = v - used
				break
			}
		}
	}
}

func (p *parser) peek(off int) byte {
	if p.pos+off < len(p.s) {
		return p.s[p.pos+off]
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDirectional(c byte) bool { return c == '/' || c == '\\' }
