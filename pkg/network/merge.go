package network

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// Merger folds fragments into one Network.
//
// Chemicals are collapsed by identity key (see [Structure.Key]); chemicals
// without a usable structure are kept apart per file. Reaction and pathway
// identifiers that collide with an earlier fragment are prefixed with the
// fragment name.
type Merger struct {
	net    *Network
	logger *log.Logger
	byKey  map[string]string // identity key -> network chemical ID
}

// NewMerger returns a Merger with an empty network. A nil logger discards
// output.
func NewMerger(logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Merger{
		net:    New(),
		logger: logger,
		byKey:  make(map[string]string),
	}
}

// Network returns the network built so far.
func (m *Merger) Network() *Network { return m.net }

// Add merges one fragment. A fragment that fails validation is dropped as a
// whole: the network is left untouched, the dropped entities are logged, and
// a PARSE_ERROR naming the fragment is returned.
func (m *Merger) Add(f Fragment) error {
	if err := f.Validate(); err != nil {
		m.logger.Warn("dropping model",
			"file", f.Source,
			"chemicals", f.ChemicalIDs(),
			"reactions", f.ReactionIDs(),
			"reason", err)
		return rperrors.Wrap(rperrors.ErrCodeParse, err, "%s", f.Source)
	}

	// Plan every identifier before touching the network so a failure
	// part-way cannot leave half a fragment behind.
	chemIDs := make(map[string]string, len(f.Chemicals))
	fresh := make(map[string]bool)
	planned := make(map[string]string)
	for _, c := range f.Chemicals {
		key := c.Structure.Key()
		if key != "" {
			if id, ok := m.byKey[key]; ok {
				chemIDs[c.ID] = id
				continue
			}
			if id, ok := planned[key]; ok {
				chemIDs[c.ID] = id
				continue
			}
		}
		id := key
		if id == "" {
			id = c.ID
		}
		id = m.freeID(id, f.Name, func(s string) bool {
			_, taken := m.net.chemicals[s]
			return taken || fresh[s]
		})
		fresh[id] = true
		chemIDs[c.ID] = id
		if key != "" {
			planned[key] = id
		}
	}

	rxnIDs := make(map[string]string, len(f.Reactions))
	freshRxn := make(map[string]bool)
	for _, r := range f.Reactions {
		id := m.freeID(r.ID, f.Name, func(s string) bool {
			_, taken := m.net.reactions[s]
			return taken || freshRxn[s]
		})
		freshRxn[id] = true
		rxnIDs[r.ID] = id
	}

	pathIDs := make(map[string]string, len(f.Pathways))
	freshPath := make(map[string]bool)
	for _, p := range f.Pathways {
		id := m.freeID(p.ID, f.Name, func(s string) bool {
			_, taken := m.net.pathways[s]
			return taken || freshPath[s]
		})
		freshPath[id] = true
		pathIDs[p.ID] = id
	}

	for _, c := range f.Chemicals {
		m.mergeChemical(chemIDs[c.ID], c)
	}
	for _, r := range f.Reactions {
		r.ID = rxnIDs[r.ID]
		r.Substrates = mergeParticipants(remap(r.Substrates, chemIDs))
		r.Products = mergeParticipants(remap(r.Products, chemIDs))
		if err := m.net.AddReaction(r); err != nil {
			return rperrors.Wrap(rperrors.ErrCodeInternal, err, "%s", f.Source)
		}
	}
	for _, p := range f.Pathways {
		p.ID = pathIDs[p.ID]
		if p.Source == "" {
			p.Source = f.Source
		}
		if p.TargetID != "" {
			p.TargetID = chemIDs[p.TargetID]
		}
		rids := make([]string, len(p.Reactions))
		for i, rid := range p.Reactions {
			rids[i] = rxnIDs[rid]
		}
		p.Reactions = rids
		if err := m.net.AddPathway(p); err != nil {
			return rperrors.Wrap(rperrors.ErrCodeInternal, err, "%s", f.Source)
		}
	}

	m.logger.Debug("merged model",
		"file", f.Source,
		"chemicals", len(f.Chemicals),
		"reactions", len(f.Reactions),
		"pathways", len(f.Pathways))
	return nil
}

// mergeChemical inserts c under id, or folds it into the chemical already
// stored there. The first display name wins.
func (m *Merger) mergeChemical(id string, c Chemical) {
	key := c.Structure.Key()
	existing, ok := m.net.chemicals[id]
	if !ok {
		c.ID = id
		c.Structure = c.Structure.Normalized()
		c.StructureID = key
		c.XRefs = cloneXRefs(c.XRefs)
		if c.Name == "" {
			c.Name = id
		}
		m.net.chemicals[id] = &c
		if key != "" {
			m.byKey[key] = id
		}
		return
	}
	existing.Structure.fill(c.Structure.Normalized())
	existing.Target = existing.Target || c.Target
	existing.Sink = existing.Sink || c.Sink
	existing.Central = existing.Central || c.Central
	if existing.Depiction == "" {
		existing.Depiction = c.Depiction
	}
	for db, refs := range c.XRefs {
		if existing.XRefs == nil {
			existing.XRefs = make(map[string][]string)
		}
		for _, ref := range refs {
			if !slices.Contains(existing.XRefs[db], ref) {
				existing.XRefs[db] = append(existing.XRefs[db], ref)
			}
		}
	}
}

// freeID returns id if it is free, otherwise "<prefix>:<id>", then
// "<prefix>:<id>_2", "<prefix>:<id>_3" and so on.
func (m *Merger) freeID(id, prefix string, taken func(string) bool) string {
	if !taken(id) {
		return id
	}
	base := prefix + ":" + id
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s_%d", base, i)
		if !taken(cand) {
			return cand
		}
	}
}

// Merge builds a network from fragments. Fragments that fail to merge are
// skipped; their errors are returned alongside the network.
func Merge(logger *log.Logger, frags ...Fragment) (*Network, []error) {
	m := NewMerger(logger)
	var errs []error
	for _, f := range frags {
		if err := m.Add(f); err != nil {
			errs = append(errs, err)
		}
	}
	return m.Network(), errs
}

func remap(ps []Participant, ids map[string]string) []Participant {
	out := make([]Participant, len(ps))
	for i, p := range ps {
		out[i] = Participant{ChemicalID: ids[p.ChemicalID], Coefficient: p.Coefficient}
	}
	return out
}

func cloneXRefs(x map[string][]string) map[string][]string {
	if x == nil {
		return nil
	}
	out := make(map[string][]string, len(x))
	for k, v := range x {
		out[k] = slices.Clone(v)
	}
	return out
}
