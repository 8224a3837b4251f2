//go:build integration

package depict

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/rpviz/pkg/network"
)

func TestGraphvizDepiction(t *testing.T) {
	svg, err := MoleculeDepicter{}.Depict(context.Background(), network.Structure{SMILES: "CC(C)=CCO"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(svg, "<svg") || !strings.Contains(svg, "OH") {
		t.Errorf("unexpected SVG:\n%s", svg)
	}
}
