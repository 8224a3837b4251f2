package viewer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/network"
)

func testNetwork(t *testing.T) *network.Network {
	t.Helper()
	n := network.New()
	for _, c := range []struct{ id, smiles string }{{"glc", "OCC1OC(O)C(O)C(O)C1O"}, {"atp", "Nc1ncnc2n(cnc12)C1OC(COP(O)(=O)OP(O)(=O)OP(O)(O)=O)C(O)C1O"}} {
		chem, err := network.NewChemical(c.id, "", network.Structure{SMILES: c.smiles})
		if err != nil {
			t.Fatal(err)
		}
		if err := n.AddChemical(chem); err != nil {
			t.Fatal(err)
		}
	}
	err := n.AddReaction(network.Reaction{
		ID:         "r1",
		Substrates: []network.Participant{{ChemicalID: "glc", Coefficient: 1}},
		Products:   []network.Participant{{ChemicalID: "atp", Coefficient: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.AddPathway(network.Pathway{ID: "P1", Reactions: []string{"r1"}, Source: "rp_1_1.xml", TargetID: "atp"}); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestInject(t *testing.T) {
	markup := []byte(`<meta content="LANDMARK_SURVEY_ID"><dd>LANDMARK_SURVEY_ID</dd>`)
	tests := []struct {
		name     string
		markup   []byte
		id       string
		status   InjectionStatus
		replaced int
	}{
		{"ok", markup, "survey-42", Injected, 2},
		{"empty id", markup, "", EmptyIdentifier, 0},
		{"no placeholder", []byte("<html></html>"), "survey-42", MissingPlaceholder, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Inject(tt.markup, tt.id)
			if res.Status != tt.status {
				t.Fatalf("status = %v, want %v", res.Status, tt.status)
			}
			if res.Replaced != tt.replaced {
				t.Errorf("replaced = %d, want %d", res.Replaced, tt.replaced)
			}
			if res.OK() {
				if res.Err() != nil {
					t.Errorf("Err() = %v", res.Err())
				}
				if bytes.Contains(res.Markup, []byte(Placeholder)) {
					t.Error("placeholder left in markup")
				}
				if !bytes.Contains(res.Markup, []byte(tt.id)) {
					t.Error("identifier missing from markup")
				}
				return
			}
			if !rperrors.Is(res.Err(), rperrors.ErrCodeInjection) {
				t.Errorf("Err() = %v, want INJECTION_FAILED", res.Err())
			}
			if res.Markup != nil {
				t.Error("markup returned for failed injection")
			}
		})
	}
	if !bytes.Contains(markup, []byte(Placeholder)) {
		t.Error("input markup was modified")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	n := testNetwork(t)
	doc := NewDocument(n, network.NewContextualInfo("E. coli", "", "uid-1"))

	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	for _, prefix := range []string{"network = {", "pathways_info = {", "contextual_info = {"} {
		if !strings.Contains(text, prefix) {
			t.Errorf("document missing %q", prefix)
		}
	}

	got, err := ReadDocument(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Network.ChemicalCount() != 2 || got.Network.ReactionCount() != 1 || got.Network.PathwayCount() != 1 {
		t.Errorf("counts = %d/%d/%d", got.Network.ChemicalCount(), got.Network.ReactionCount(), got.Network.PathwayCount())
	}
	if got.ContextualInfo.TargetName != network.NotAvailable {
		t.Errorf("target = %q", got.ContextualInfo.TargetName)
	}
	info, ok := got.PathwaysInfo["P1"]
	if !ok || info.NbReactions != 1 || info.TargetID != "atp" {
		t.Errorf("pathways_info[P1] = %+v", info)
	}

	var again bytes.Buffer
	if err := WriteDocument(&again, got); err != nil {
		t.Fatal(err)
	}
	if again.String() != text {
		t.Error("re-encoded document differs")
	}
}

func TestReadDocumentErrors(t *testing.T) {
	tests := map[string]string{
		"not assignment": `{"a": 1}`,
		"missing var":    "network = {\"chemicals\":{},\"reactions\":{},\"pathways\":{}};\n",
		"bad json":       "network = {;\n",
		"dangling":       "network = {\"chemicals\":{},\"reactions\":{\"r\":{\"id\":\"r\",\"substrates\":[{\"chemical_id\":\"x\",\"coefficient\":1}],\"products\":[]}},\"pathways\":{}};\npathways_info = {};\ncontextual_info = {};\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadDocument(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "viewer")
	a := &Assembler{}
	out, err := a.Assemble(context.Background(), dir, NewDocument(testNetwork(t), network.NewContextualInfo("", "", "survey-42")))
	if err != nil {
		t.Fatal(err)
	}
	if out.Assets != 2 {
		t.Errorf("assets = %d, want 2", out.Assets)
	}
	for _, f := range []string{"index.html", "network.json", "css/viewer.css", "js/viewer.js"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
	index, err := os.ReadFile(out.Index)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(index, []byte("survey-42")) || bytes.Contains(index, []byte(Placeholder)) {
		t.Error("identifier not injected into index.html")
	}
	doc, err := ReadDocumentFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ContextualInfo.UniqueID != "survey-42" {
		t.Errorf("unique id = %q", doc.ContextualInfo.UniqueID)
	}
}

func TestAssembleEmptyIdentifier(t *testing.T) {
	dir := t.TempDir()
	a := &Assembler{}
	out, err := a.Assemble(context.Background(), dir, NewDocument(testNetwork(t), network.NewContextualInfo("", "", "")))
	if !rperrors.Is(err, rperrors.ErrCodeInjection) {
		t.Fatalf("err = %v, want INJECTION_FAILED", err)
	}
	if out == nil || out.Injection.Status != EmptyIdentifier {
		t.Fatalf("output = %+v", out)
	}
	if _, err := os.Stat(filepath.Join(dir, IndexFile)); !os.IsNotExist(err) {
		t.Error("index.html written after failed injection")
	}
}

func TestAssembleCustomTemplates(t *testing.T) {
	tmpl := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpl, "index.html"), []byte("<p>LANDMARK_SURVEY_ID</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpl, "img"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpl, "img", "logo.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	a := &Assembler{TemplateDir: tmpl}
	out, err := a.Assemble(context.Background(), dir, NewDocument(network.New(), network.NewContextualInfo("", "", "x")))
	if err != nil {
		t.Fatal(err)
	}
	if out.Assets != 1 {
		t.Errorf("assets = %d, want 1", out.Assets)
	}
	if _, err := os.Stat(filepath.Join(dir, "js", "viewer.js")); !os.IsNotExist(err) {
		t.Error("embedded assets mixed into custom template set")
	}
}

func TestAssembleErrors(t *testing.T) {
	noIndex := t.TempDir()
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		template string
		dir      string
	}{
		{"template without index", noIndex, t.TempDir()},
		{"missing template folder", filepath.Join(noIndex, "nope"), t.TempDir()},
		{"output under a file", "", filepath.Join(blocker, "out")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Assembler{TemplateDir: tt.template}
			_, err := a.Assemble(context.Background(), tt.dir, NewDocument(network.New(), network.NewContextualInfo("", "", "x")))
			if !rperrors.Is(err, rperrors.ErrCodeIO) {
				t.Errorf("err = %v, want IO_ERROR", err)
			}
		})
	}
}
