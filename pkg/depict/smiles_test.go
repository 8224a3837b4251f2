package depict

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSMILES(t *testing.T) {
	tests := []struct {
		smiles string
		atoms  int
		bonds  int
	}{
		{"C", 1, 0},
		{"CCO", 3, 2},
		{"C=O", 2, 1},
		{"C#N", 2, 1},
		{"CC(=O)O", 4, 3},
		{"c1ccccc1", 6, 6},
		{"C1CC%10CC1CC%10", 7, 8},
		{"[NH4+].[Cl-]", 2, 0},
		{"[13CH4]", 1, 0},
		{"N[C@@H](C)C(=O)O", 6, 5},
		{"F/C=C/F", 4, 3},
		{"c1cc[nH]c1", 5, 5},
		{"[Se]", 1, 0},
		{"*C", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			m, err := ParseSMILES(tt.smiles)
			if err != nil {
				t.Fatalf("ParseSMILES: %v", err)
			}
			if len(m.Atoms) != tt.atoms || len(m.Bonds) != tt.bonds {
				t.Errorf("got %d atoms, %d bonds; want %d, %d", len(m.Atoms), len(m.Bonds), tt.atoms, tt.bonds)
			}
		})
	}
}

func TestParseSMILESErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"C(",
		"C)",
		"C1CC",
		"C==C",
		"C=",
		"[Xx]",
		"[C",
		"(C)",
		"CC>>CO",
		"Q",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseSMILES(s)
			if !errors.Is(err, ErrInvalidSMILES) {
				t.Errorf("ParseSMILES(%q) = %v, want ErrInvalidSMILES", s, err)
			}
		})
	}
}

func TestParseSMILESAtoms(t *testing.T) {
	m, err := ParseSMILES("[NH4+].[O-]C(=O)C")
	if err != nil {
		t.Fatal(err)
	}
	n := m.Atoms[0]
	if n.Element != "N" || n.HCount != 4 || n.Charge != 1 || !n.Bracket {
		t.Errorf("ammonium = %+v", n)
	}
	if m.Atoms[1].Charge != -1 {
		t.Errorf("oxide charge = %d", m.Atoms[1].Charge)
	}
	if m.Bonds[1].Order != 2 {
		t.Errorf("carbonyl order = %d", m.Bonds[1].Order)
	}
	if m.Atoms[4].HCount != 3 {
		t.Errorf("methyl hydrogens = %d", m.Atoms[4].HCount)
	}

	m, _ = ParseSMILES("[Fe+++]")
	if m.Atoms[0].Charge != 3 {
		t.Errorf("Fe charge = %d", m.Atoms[0].Charge)
	}
	m, _ = ParseSMILES("[Cu-2]")
	if m.Atoms[0].Charge != -2 {
		t.Errorf("Cu charge = %d", m.Atoms[0].Charge)
	}
}

func TestAromaticHydrogens(t *testing.T) {
	m, err := ParseSMILES("c1ccncc1O")
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{1, 1, 1, 0, 1, 0, 1} {
		if m.Atoms[i].HCount != want {
			t.Errorf("atom %d (%s) HCount = %d, want %d", i, m.Atoms[i].Element, m.Atoms[i].HCount, want)
		}
	}
	for _, b := range m.Bonds[:6] {
		if !b.Aromatic {
			t.Errorf("ring bond %d-%d not aromatic", b.From, b.To)
		}
	}
	if m.Bonds[6].Aromatic {
		t.Error("C-O bond should not be aromatic")
	}
}

func TestRingClosureBondOrder(t *testing.T) {
	m, err := ParseSMILES("C=1CCCCC1")
	if err != nil {
		t.Fatal(err)
	}
	last := m.Bonds[len(m.Bonds)-1]
	if last.From != 0 || last.To != 5 || last.Order != 2 {
		t.Errorf("ring closure = %+v", last)
	}
}

func TestToDOT(t *testing.T) {
	m, _ := ParseSMILES("OC(=O)C#N")
	dot := ToDOT(m)
	for _, want := range []string{
		"graph molecule {",
		`a0 [label="OH"`,
		`a1 [label="", shape=point`,
		`a1 -- a2 [color="#202020:invis:#202020"]`,
		`a3 -- a4 [color="#202020:invis:#202020:invis:#202020"]`,
		`a0 -- a1;`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestAtomLabel(t *testing.T) {
	tests := []struct {
		atom Atom
		want string
	}{
		{Atom{Element: "N", HCount: 3, Charge: 1}, "NH3+"},
		{Atom{Element: "O", Charge: -1}, "O-"},
		{Atom{Element: "C", Isotope: 13}, "13C"},
		{Atom{Element: "Fe", Charge: 3}, "Fe3+"},
		{Atom{Element: "S", Charge: -2}, "S2-"},
		{Atom{Element: "O", HCount: 1}, "OH"},
	}
	for _, tt := range tests {
		if got := AtomLabel(tt.atom); got != tt.want {
			t.Errorf("AtomLabel(%+v) = %q, want %q", tt.atom, got, tt.want)
		}
	}
}
