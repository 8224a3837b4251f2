// Package sbml loads rpSBML pathway models into network fragments.
//
// An rpSBML file is an SBML level 3 document describing one retrosynthetic
// pathway. Structures, rule identifiers and scores live in BRSynth
// annotations; the pathway itself is the "rp_pathway" group of the SBML
// groups package. The loader maps one file to one [network.Fragment] and
// leaves identity resolution to the network merger.
//
// A file that cannot be parsed yields a PARSE_ERROR naming the file. No
// partial recovery is attempted within a file.
package sbml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/rpviz/pkg/network"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// Well-known group identifiers.
const (
	GroupPathway = "rp_pathway"
	GroupSinks   = "rp_sink_species"
	GroupCentral = "central_species"
)

// TargetPrefix marks the species a pathway produces.
const TargetPrefix = "TARGET"

// Extensions lists the file extensions treated as models.
var Extensions = []string{".xml", ".sbml"}

// Loader reads rpSBML files.
type Loader struct{}

// Supports reports whether name looks like a model file.
func (Loader) Supports(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load parses the model file at path.
func (l Loader) Load(path string) (network.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s", path)
	}
	return l.Parse(path, data)
}

// LoadReader parses a model read from r. The name is used for provenance.
func (l Loader) LoadReader(name string, r io.Reader) (network.Fragment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s", name)
	}
	return l.Parse(name, data)
}

// Parse builds a fragment from the raw document. The fragment and its
// single pathway are named after the file stem.
func (Loader) Parse(name string, data []byte) (network.Fragment, error) {
	var doc document
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s", name)
	}
	if doc.Model == nil {
		return network.Fragment{}, rperrors.New(rperrors.ErrCodeParse, "%s: no model element", name)
	}
	m := doc.Model
	stem := Stem(name)

	groups := make(map[string]*group, len(m.Groups))
	for i := range m.Groups {
		groups[m.Groups[i].ID] = &m.Groups[i]
	}
	sinks := memberSet(groups[GroupSinks])
	central := memberSet(groups[GroupCentral])

	frag := network.Fragment{Name: stem, Source: name}

	var target string
	names := make(map[string]string, len(m.Species))
	for _, sp := range m.Species {
		ann, err := parseAnnotation(sp.Annotation.Inner)
		if err != nil {
			return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s: species %s annotation", name, sp.ID)
		}
		c := network.Chemical{
			ID:   sp.ID,
			Name: sp.Name,
			Structure: network.Structure{
				SMILES:   ann.first("smiles"),
				InChI:    ann.first("inchi"),
				InChIKey: ann.first("inchikey"),
			},
			Sink:    sinks[sp.ID],
			Central: central[sp.ID],
		}
		if len(ann.xrefs) > 0 {
			c.XRefs = ann.xrefs
		}
		if strings.HasPrefix(sp.ID, TargetPrefix) {
			c.Target = true
			if target == "" {
				target = sp.ID
			}
		}
		if c.Name == "" {
			c.Name = sp.ID
		}
		names[sp.ID] = c.Name
		frag.Chemicals = append(frag.Chemicals, c)
	}

	rxnSet := make(map[string]bool, len(m.Reactions))
	for _, rx := range m.Reactions {
		ann, err := parseAnnotation(rx.Annotation.Inner)
		if err != nil {
			return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s: reaction %s annotation", name, rx.ID)
		}
		subs, err := participants(rx.Reactants)
		if err != nil {
			return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s: reaction %s", name, rx.ID)
		}
		prods, err := participants(rx.Products)
		if err != nil {
			return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s: reaction %s", name, rx.ID)
		}
		r := network.Reaction{
			ID:         rx.ID,
			Name:       rx.Name,
			Substrates: subs,
			Products:   prods,
			SMILES:     ann.first("smiles"),
			RuleIDs:    ann.fields["rule_id"],
			Scores:     ann.scores("smiles", "rule_id", "ec_number", "rule_ori_reac", "rule_score_ori"),
		}
		if ecs := ann.fields["ec_number"]; len(ecs) > 0 || len(rx.Modifiers) > 0 {
			e := &network.Enzyme{ECNumbers: ecs}
			for _, mod := range rx.Modifiers {
				label := names[mod.Species]
				if label == "" {
					label = mod.Species
				}
				e.Modifiers = append(e.Modifiers, label)
			}
			r.Enzyme = e
		}
		rxnSet[rx.ID] = true
		frag.Reactions = append(frag.Reactions, r)
	}

	pathAnn, err := parseAnnotation(pathwayGroupAnnotation(groups))
	if err != nil {
		return network.Fragment{}, rperrors.Wrap(rperrors.ErrCodeParse, err, "%s: pathway annotation", name)
	}
	p := network.Pathway{
		ID:        stem,
		Name:      m.Name,
		Reactions: pathwayReactions(m, groups, rxnSet),
		Source:    name,
		TargetID:  target,
		Scores:    pathAnn.scores(),
	}
	if p.Name == "" {
		p.Name = stem
	}
	frag.Pathways = []network.Pathway{p}
	return frag, nil
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pathwayReactions picks the reaction sequence of the pathway: the members
// of the rp_pathway group, else the first group made only of reactions,
// else every reaction in document order.
func pathwayReactions(m *model, groups map[string]*group, rxns map[string]bool) []string {
	if g, ok := groups[GroupPathway]; ok {
		var ids []string
		for _, mem := range g.Members {
			if rxns[mem.IDRef] {
				ids = append(ids, mem.IDRef)
			}
		}
		return ids
	}
	for _, g := range m.Groups {
		if len(g.Members) == 0 {
			continue
		}
		all := true
		for _, mem := range g.Members {
			if !rxns[mem.IDRef] {
				all = false
				break
			}
		}
		if all {
			ids := make([]string, len(g.Members))
			for i, mem := range g.Members {
				ids[i] = mem.IDRef
			}
			return ids
		}
	}
	ids := make([]string, len(m.Reactions))
	for i, r := range m.Reactions {
		ids[i] = r.ID
	}
	return ids
}

func pathwayGroupAnnotation(groups map[string]*group) []byte {
	if g, ok := groups[GroupPathway]; ok {
		return g.Annotation.Inner
	}
	return nil
}

func participants(refs []speciesReference) ([]network.Participant, error) {
	out := make([]network.Participant, 0, len(refs))
	for _, ref := range refs {
		coef := 1.0
		if s := strings.TrimSpace(ref.Stoichiometry); s != "" {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("species %s: non-finite stoichiometry %q", ref.Species, s)
			}
			coef = f
		}
		out = append(out, network.Participant{ChemicalID: ref.Species, Coefficient: coef})
	}
	return out, nil
}

func memberSet(g *group) map[string]bool {
	set := make(map[string]bool)
	if g == nil {
		return set
	}
	for _, mem := range g.Members {
		set[mem.IDRef] = true
	}
	return set
}
