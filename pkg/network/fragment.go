package network

import (
	"fmt"
	"math"
	"slices"
)

// Fragment is the content of a single model file before merging.
//
// Identifiers inside a fragment are local to the file: reactions reference
// chemicals and pathways reference reactions by their local identifiers.
// The [Merger] maps them onto network-wide identifiers.
type Fragment struct {
	Name      string // provenance label, usually the file stem
	Source    string // path of the model file
	Chemicals []Chemical
	Reactions []Reaction
	Pathways  []Pathway
}

// Validate checks that every local reference in the fragment resolves and
// that local identifiers are unique. It returns the first problem found.
func (f *Fragment) Validate() error {
	chems := make(map[string]bool, len(f.Chemicals))
	for _, c := range f.Chemicals {
		if c.ID == "" {
			return fmt.Errorf("%s: chemical: %w", f.Name, ErrInvalidID)
		}
		if chems[c.ID] {
			return fmt.Errorf("%s: %w: %s", f.Name, ErrDuplicateChemical, c.ID)
		}
		chems[c.ID] = true
	}

	rxns := make(map[string]bool, len(f.Reactions))
	for _, r := range f.Reactions {
		if r.ID == "" {
			return fmt.Errorf("%s: reaction: %w", f.Name, ErrInvalidID)
		}
		if rxns[r.ID] {
			return fmt.Errorf("%s: %w: %s", f.Name, ErrDuplicateReaction, r.ID)
		}
		rxns[r.ID] = true
		for _, side := range [][]Participant{r.Substrates, r.Products} {
			for _, p := range side {
				if !chems[p.ChemicalID] {
					return fmt.Errorf("%s: reaction %s: %w: %s", f.Name, r.ID, ErrUnknownChemical, p.ChemicalID)
				}
				if !(p.Coefficient > 0) || math.IsInf(p.Coefficient, 1) {
					return fmt.Errorf("%s: reaction %s: %w: %s", f.Name, r.ID, ErrInvalidCoefficient, p.ChemicalID)
				}
			}
		}
	}

	paths := make(map[string]bool, len(f.Pathways))
	for _, p := range f.Pathways {
		if p.ID == "" {
			return fmt.Errorf("%s: pathway: %w", f.Name, ErrInvalidID)
		}
		if paths[p.ID] {
			return fmt.Errorf("%s: %w: %s", f.Name, ErrDuplicatePathway, p.ID)
		}
		paths[p.ID] = true
		for _, rid := range p.Reactions {
			if !rxns[rid] {
				return fmt.Errorf("%s: pathway %s: %w: %s", f.Name, p.ID, ErrUnknownReaction, rid)
			}
		}
		if p.TargetID != "" && !chems[p.TargetID] {
			return fmt.Errorf("%s: pathway %s target: %w: %s", f.Name, p.ID, ErrUnknownChemical, p.TargetID)
		}
	}
	return nil
}

// ChemicalIDs returns the local chemical identifiers in file order.
func (f *Fragment) ChemicalIDs() []string {
	ids := make([]string, len(f.Chemicals))
	for i, c := range f.Chemicals {
		ids[i] = c.ID
	}
	return ids
}

// ReactionIDs returns the local reaction identifiers in file order.
func (f *Fragment) ReactionIDs() []string {
	ids := make([]string, len(f.Reactions))
	for i, r := range f.Reactions {
		ids[i] = r.ID
	}
	return ids
}

// mergeParticipants sums the coefficients of repeated chemicals on one side
// of a reaction, keeping first-occurrence order.
func mergeParticipants(ps []Participant) []Participant {
	out := make([]Participant, 0, len(ps))
	for _, p := range ps {
		i := slices.IndexFunc(out, func(q Participant) bool { return q.ChemicalID == p.ChemicalID })
		if i >= 0 {
			out[i].Coefficient += p.Coefficient
			continue
		}
		out = append(out, p)
	}
	return out
}
