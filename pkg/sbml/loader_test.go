package sbml

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/rpviz/pkg/network"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

func load(t *testing.T, name string) network.Fragment {
	t.Helper()
	f, err := Loader{}.Load(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return f
}

func TestLoaderSupports(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"rp_1_1.xml", true},
		{"rp_1_1.SBML", true},
		{"notes.txt", false},
		{"archive.tar", false},
	}
	for _, tt := range tests {
		if got := (Loader{}).Supports(tt.name); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoadPathway(t *testing.T) {
	f := load(t, "rp_1_1.xml")

	if f.Name != "rp_1_1" {
		t.Errorf("Name = %q", f.Name)
	}
	if len(f.Chemicals) != 5 {
		t.Fatalf("got %d chemicals, want 5", len(f.Chemicals))
	}
	if len(f.Reactions) != 1 || len(f.Pathways) != 1 {
		t.Fatalf("got %d reactions, %d pathways", len(f.Reactions), len(f.Pathways))
	}

	water := f.Chemicals[0]
	if water.Structure.InChIKey != "XLYOFNOQVPJJNP-UHFFFAOYSA-N" || water.Structure.SMILES != "O" {
		t.Errorf("water structure = %+v", water.Structure)
	}
	if got := water.XRefs["metanetx.chemical"]; !slices.Equal(got, []string{"MNXM2"}) {
		t.Errorf("metanetx xrefs = %v", got)
	}
	if got := water.XRefs["chebi"]; !slices.Equal(got, []string{"CHEBI:15377"}) {
		t.Errorf("chebi xrefs = %v", got)
	}

	prenol := f.Chemicals[1]
	if prenol.Name != prenol.ID {
		t.Errorf("empty name should fall back to id, got %q", prenol.Name)
	}
	if !prenol.Sink {
		t.Error("sink group member not flagged")
	}
	if !f.Chemicals[2].Target {
		t.Error("TARGET species not flagged")
	}

	r := f.Reactions[0]
	if r.SMILES != "CC(C)=CCO>>CC(C)=CC=O.O" {
		t.Errorf("reaction SMILES = %q", r.SMILES)
	}
	if !slices.Equal(r.RuleIDs, []string{"RR-02-a0cc0be463ff412f-16-F"}) {
		t.Errorf("RuleIDs = %v", r.RuleIDs)
	}
	if r.Scores["rule_score"] != 0.7482 || r.Scores["dfG_prime_m"] != -12.5 {
		t.Errorf("Scores = %v", r.Scores)
	}
	if r.Enzyme == nil || !slices.Equal(r.Enzyme.ECNumbers, []string{"1.1.1.1", "1.1.1.2"}) {
		t.Fatalf("Enzyme = %+v", r.Enzyme)
	}
	if !slices.Equal(r.Enzyme.Modifiers, []string{"alcohol dehydrogenase"}) {
		t.Errorf("Modifiers = %v", r.Enzyme.Modifiers)
	}
	if r.Substrates[1].Coefficient != 1 {
		t.Errorf("missing stoichiometry should default to 1, got %v", r.Substrates[1].Coefficient)
	}
	if r.Products[1].Coefficient != 2 {
		t.Errorf("water coefficient = %v", r.Products[1].Coefficient)
	}

	p := f.Pathways[0]
	if p.ID != "rp_1_1" || p.Name != "RetroPath2 pathway 1_1" {
		t.Errorf("pathway = %q %q", p.ID, p.Name)
	}
	if !slices.Equal(p.Reactions, []string{"RP1"}) {
		t.Errorf("pathway reactions = %v", p.Reactions)
	}
	if p.TargetID != "TARGET_0000000001__64__MNXC3" {
		t.Errorf("TargetID = %q", p.TargetID)
	}
	if p.Scores["global_score"] != 0.812 {
		t.Errorf("pathway scores = %v", p.Scores)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("fragment invalid: %v", err)
	}
}

func TestLoadWithoutGroups(t *testing.T) {
	f := load(t, "rp_2_1.xml")
	p := f.Pathways[0]
	if !slices.Equal(p.Reactions, []string{"RP1"}) {
		t.Errorf("fallback reactions = %v", p.Reactions)
	}
	if p.Name != "rp_2_1" {
		t.Errorf("Name = %q, want stem", p.Name)
	}
}

func TestLoadedFragmentsMerge(t *testing.T) {
	n, errs := network.Merge(nil, load(t, "rp_1_1.xml"), load(t, "rp_2_1.xml"))
	if len(errs) != 0 {
		t.Fatal(errs)
	}
	water, ok := n.Chemical("XLYOFNOQVPJJNP-UHFFFAOYSA-N")
	if !ok {
		t.Fatal("water not merged by InChIKey")
	}
	if water.Name != "H2O" {
		t.Errorf("Name = %q, want first seen", water.Name)
	}
	if got := n.ChemicalPathways(water.ID); !slices.Equal(got, []string{"rp_1_1", "rp_2_1"}) {
		t.Errorf("water pathways = %v", got)
	}
}

func TestLoadDanglingReferenceIsDroppedByMerger(t *testing.T) {
	f := load(t, "dangling.xml")
	_, errs := network.Merge(nil, f)
	if len(errs) != 1 || !rperrors.Is(errs[0], rperrors.ErrCodeParse) {
		t.Fatalf("errs = %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "MISSING") {
		t.Errorf("error does not name the missing chemical: %v", errs[0])
	}
}

func TestLoadErrors(t *testing.T) {
	for _, name := range []string{"truncated.xml", "does-not-exist.xml"} {
		t.Run(name, func(t *testing.T) {
			_, err := Loader{}.Load(filepath.Join("testdata", name))
			if !rperrors.Is(err, rperrors.ErrCodeParse) {
				t.Fatalf("got %v, want PARSE_ERROR", err)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error does not name the file: %v", err)
			}
		})
	}
}

// loadEdited loads a copy of a test model with old replaced by new.
func loadEdited(t *testing.T, name, old, new string) (network.Fragment, error) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	src := string(data)
	if !strings.Contains(src, old) {
		t.Fatalf("%s does not contain %q", name, old)
	}
	return Loader{}.LoadReader(name, strings.NewReader(strings.Replace(src, old, new, 1)))
}

func TestLoadSkipsNonFiniteScores(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		t.Run(v, func(t *testing.T) {
			f, err := loadEdited(t, "rp_1_1.xml", `global_score value="0.812"`, `global_score value="`+v+`"`)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := f.Pathways[0].Scores["global_score"]; ok {
				t.Errorf("pathway scores = %v", f.Pathways[0].Scores)
			}

			f, err = loadEdited(t, "rp_1_1.xml", `rule_score value="0.7482"`, `rule_score value="`+v+`"`)
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := f.Reactions[0].Scores["rule_score"]; ok {
				t.Errorf("reaction scores = %v", f.Reactions[0].Scores)
			}
		})
	}
}

func TestLoadRejectsNonFiniteStoichiometry(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		t.Run(v, func(t *testing.T) {
			_, err := loadEdited(t, "rp_1_1.xml", `stoichiometry="2"`, `stoichiometry="`+v+`"`)
			if !rperrors.Is(err, rperrors.ErrCodeParse) {
				t.Fatalf("got %v, want PARSE_ERROR", err)
			}
			if !strings.Contains(err.Error(), "rp_1_1.xml") {
				t.Errorf("error does not name the file: %v", err)
			}
		})
	}
}

func TestLoadNoModel(t *testing.T) {
	_, err := Loader{}.LoadReader("empty.xml", strings.NewReader(`<sbml level="3"/>`))
	if !rperrors.Is(err, rperrors.ErrCodeParse) {
		t.Fatalf("got %v", err)
	}
}

func TestSplitResource(t *testing.T) {
	tests := []struct {
		uri, db, id string
		ok          bool
	}{
		{"http://identifiers.org/metanetx.chemical/MNXM2", "metanetx.chemical", "MNXM2", true},
		{"https://identifiers.org/chebi/CHEBI:15377", "chebi", "CHEBI:15377", true},
		{"https://identifiers.org/CHEBI:15377", "CHEBI", "15377", true},
		{"urn:miriam:kegg.compound:C00001", "kegg.compound", "C00001", true},
		{"http://identifiers.org/", "", "", false},
	}
	for _, tt := range tests {
		db, id, ok := splitResource(tt.uri)
		if db != tt.db || id != tt.id || ok != tt.ok {
			t.Errorf("splitResource(%q) = %q, %q, %v", tt.uri, db, id, ok)
		}
	}
}
