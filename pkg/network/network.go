package network

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

var (
	// ErrInvalidID is returned when an entity identifier is empty.
	ErrInvalidID = errors.New("identifier must not be empty")

	// ErrDuplicateChemical is returned by [Network.AddChemical] when the
	// chemical identifier is already taken.
	ErrDuplicateChemical = errors.New("duplicate chemical")

	// ErrDuplicateReaction is returned by [Network.AddReaction] when the
	// reaction identifier is already taken.
	ErrDuplicateReaction = errors.New("duplicate reaction")

	// ErrDuplicatePathway is returned by [Network.AddPathway] when the
	// pathway identifier is already taken.
	ErrDuplicatePathway = errors.New("duplicate pathway")

	// ErrUnknownChemical is returned when a reaction references a chemical
	// that is not in the network.
	ErrUnknownChemical = errors.New("unknown chemical")

	// ErrUnknownReaction is returned when a pathway references a reaction
	// that is not in the network.
	ErrUnknownReaction = errors.New("unknown reaction")

	// ErrInvalidCoefficient is returned for a non-positive stoichiometric
	// coefficient.
	ErrInvalidCoefficient = errors.New("stoichiometric coefficient must be positive")
)

// Chemical is a compound node of the network.
type Chemical struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	StructureID string              `json:"structure_id,omitempty"` // identity key, see Structure.Key
	Structure   Structure           `json:"structure"`
	Depiction   string              `json:"svg,omitempty"` // SVG markup
	Cofactor    bool                `json:"cofactor"`
	Target      bool                `json:"target,omitempty"`
	Sink        bool                `json:"sink,omitempty"`
	Central     bool                `json:"central,omitempty"`
	XRefs       map[string][]string `json:"xrefs,omitempty"`
}

// NewChemical builds a Chemical with a normalized structure and its
// identity key. The display name defaults to the identifier.
func NewChemical(id, name string, s Structure) (Chemical, error) {
	if id == "" {
		return Chemical{}, ErrInvalidID
	}
	if name == "" {
		name = id
	}
	ns := s.Normalized()
	return Chemical{
		ID:          id,
		Name:        name,
		StructureID: ns.Key(),
		Structure:   ns,
	}, nil
}

// Participant is one side entry of a reaction equation.
type Participant struct {
	ChemicalID  string  `json:"chemical_id"`
	Coefficient float64 `json:"coefficient"`
}

// Enzyme describes the catalyst annotation of a reaction.
type Enzyme struct {
	ECNumbers []string `json:"ec_numbers,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"` // modifier species names
}

// Reaction is a reaction node of the network.
type Reaction struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Substrates []Participant      `json:"substrates"`
	Products   []Participant      `json:"products"`
	Enzyme     *Enzyme            `json:"enzyme,omitempty"`
	SMILES     string             `json:"smiles,omitempty"` // reaction SMILES
	RuleIDs    []string           `json:"rule_ids,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	PathwayIDs []string           `json:"path_ids"` // sorted, unique
}

// Chemicals returns the identifiers of all participants, substrates first.
func (r *Reaction) Chemicals() []string {
	ids := make([]string, 0, len(r.Substrates)+len(r.Products))
	for _, p := range r.Substrates {
		ids = append(ids, p.ChemicalID)
	}
	for _, p := range r.Products {
		ids = append(ids, p.ChemicalID)
	}
	return ids
}

func (r *Reaction) addPathway(id string) {
	i, found := slices.BinarySearch(r.PathwayIDs, id)
	if !found {
		r.PathwayIDs = slices.Insert(r.PathwayIDs, i, id)
	}
}

// Pathway is an ordered sequence of reactions read from one model file.
type Pathway struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Reactions []string           `json:"reactions"`
	Source    string             `json:"source"`
	TargetID  string             `json:"target_id,omitempty"`
	Scores    map[string]float64 `json:"scores,omitempty"`
}

// Network is the merged reaction network.
//
// The zero value is not usable; use [New]. Entities are only added through
// the Add methods, which keep every reference resolvable. The pointers
// returned by the accessors may be used to update annotations, but never
// the identifiers.
type Network struct {
	chemicals map[string]*Chemical
	reactions map[string]*Reaction
	pathways  map[string]*Pathway
}

// New creates an empty Network.
func New() *Network {
	return &Network{
		chemicals: make(map[string]*Chemical),
		reactions: make(map[string]*Reaction),
		pathways:  make(map[string]*Pathway),
	}
}

// AddChemical inserts a chemical. The identifier must be unique.
func (n *Network) AddChemical(c Chemical) error {
	if c.ID == "" {
		return ErrInvalidID
	}
	if _, ok := n.chemicals[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChemical, c.ID)
	}
	if c.Name == "" {
		c.Name = c.ID
	}
	n.chemicals[c.ID] = &c
	return nil
}

// AddReaction inserts a reaction. Every participant must already be in the
// network and carry a positive coefficient. Pathway memberships are managed
// by [Network.AddPathway]; any PathwayIDs on r are discarded.
func (n *Network) AddReaction(r Reaction) error {
	if r.ID == "" {
		return ErrInvalidID
	}
	if _, ok := n.reactions[r.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateReaction, r.ID)
	}
	for _, side := range [][]Participant{r.Substrates, r.Products} {
		for _, p := range side {
			if _, ok := n.chemicals[p.ChemicalID]; !ok {
				return fmt.Errorf("reaction %s: %w: %s", r.ID, ErrUnknownChemical, p.ChemicalID)
			}
			if !(p.Coefficient > 0) || math.IsInf(p.Coefficient, 1) {
				return fmt.Errorf("reaction %s: %w: %s", r.ID, ErrInvalidCoefficient, p.ChemicalID)
			}
		}
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	r.Substrates = slices.Clone(r.Substrates)
	r.Products = slices.Clone(r.Products)
	r.PathwayIDs = nil
	n.reactions[r.ID] = &r
	return nil
}

// AddPathway inserts a pathway and records its membership on each of its
// reactions. Every reaction must already be in the network.
func (n *Network) AddPathway(p Pathway) error {
	if p.ID == "" {
		return ErrInvalidID
	}
	if _, ok := n.pathways[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePathway, p.ID)
	}
	for _, rid := range p.Reactions {
		if _, ok := n.reactions[rid]; !ok {
			return fmt.Errorf("pathway %s: %w: %s", p.ID, ErrUnknownReaction, rid)
		}
	}
	if p.TargetID != "" {
		if _, ok := n.chemicals[p.TargetID]; !ok {
			return fmt.Errorf("pathway %s target: %w: %s", p.ID, ErrUnknownChemical, p.TargetID)
		}
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	p.Reactions = slices.Clone(p.Reactions)
	for _, rid := range p.Reactions {
		n.reactions[rid].addPathway(p.ID)
	}
	n.pathways[p.ID] = &p
	return nil
}

// Chemical returns the chemical with the given identifier.
func (n *Network) Chemical(id string) (*Chemical, bool) {
	c, ok := n.chemicals[id]
	return c, ok
}

// Reaction returns the reaction with the given identifier.
func (n *Network) Reaction(id string) (*Reaction, bool) {
	r, ok := n.reactions[id]
	return r, ok
}

// Pathway returns the pathway with the given identifier.
func (n *Network) Pathway(id string) (*Pathway, bool) {
	p, ok := n.pathways[id]
	return p, ok
}

// Chemicals returns all chemicals sorted by identifier.
func (n *Network) Chemicals() []*Chemical {
	return sortedValues(n.chemicals, func(c *Chemical) string { return c.ID })
}

// Reactions returns all reactions sorted by identifier.
func (n *Network) Reactions() []*Reaction {
	return sortedValues(n.reactions, func(r *Reaction) string { return r.ID })
}

// Pathways returns all pathways sorted by identifier.
func (n *Network) Pathways() []*Pathway {
	return sortedValues(n.pathways, func(p *Pathway) string { return p.ID })
}

// ChemicalCount returns the number of chemicals.
func (n *Network) ChemicalCount() int { return len(n.chemicals) }

// ReactionCount returns the number of reactions.
func (n *Network) ReactionCount() int { return len(n.reactions) }

// PathwayCount returns the number of pathways.
func (n *Network) PathwayCount() int { return len(n.pathways) }

// ChemicalPathways returns the sorted union of the pathways of every
// reaction the chemical takes part in.
func (n *Network) ChemicalPathways(id string) []string {
	set := make(map[string]struct{})
	for _, r := range n.reactions {
		if !slices.Contains(r.Chemicals(), id) {
			continue
		}
		for _, pid := range r.PathwayIDs {
			set[pid] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Validate re-checks the referential invariants of the network.
// Networks built through the Add methods always validate; the check exists
// for networks decoded from external documents.
func (n *Network) Validate() error {
	for _, r := range n.reactions {
		for _, cid := range r.Chemicals() {
			if _, ok := n.chemicals[cid]; !ok {
				return fmt.Errorf("reaction %s: %w: %s", r.ID, ErrUnknownChemical, cid)
			}
		}
	}
	for _, p := range n.pathways {
		for _, rid := range p.Reactions {
			if _, ok := n.reactions[rid]; !ok {
				return fmt.Errorf("pathway %s: %w: %s", p.ID, ErrUnknownReaction, rid)
			}
		}
	}
	return nil
}

type wireNetwork struct {
	Chemicals map[string]*Chemical `json:"chemicals"`
	Reactions map[string]*Reaction `json:"reactions"`
	Pathways  map[string]*Pathway  `json:"pathways"`
}

// MarshalJSON encodes the network as three identifier-keyed objects.
// Map keys are emitted in sorted order, so the encoding is deterministic.
func (n *Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireNetwork{
		Chemicals: n.chemicals,
		Reactions: n.reactions,
		Pathways:  n.pathways,
	})
}

// UnmarshalJSON decodes a network produced by MarshalJSON, re-running the
// insertion checks so the result honours the same invariants.
func (n *Network) UnmarshalJSON(data []byte) error {
	var w wireNetwork
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := New()
	for _, c := range sortedValues(w.Chemicals, func(c *Chemical) string { return c.ID }) {
		if err := out.AddChemical(*c); err != nil {
			return err
		}
	}
	for _, r := range sortedValues(w.Reactions, func(r *Reaction) string { return r.ID }) {
		if err := out.AddReaction(*r); err != nil {
			return err
		}
	}
	for _, p := range sortedValues(w.Pathways, func(p *Pathway) string { return p.ID }) {
		if err := out.AddPathway(*p); err != nil {
			return err
		}
	}
	*n = *out
	return nil
}

func sortedValues[T any](m map[string]*T, id func(*T) string) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *T) int { return cmp.Compare(id(a), id(b)) })
	return out
}
