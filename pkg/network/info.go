package network

import "slices"

// NotAvailable is the label used for contextual fields left blank.
const NotAvailable = "not available"

// ContextualInfo carries the caller-supplied labels shown by the viewer.
// The values are opaque and passed through unmodified.
type ContextualInfo struct {
	ChassisName string `json:"survey_chassis_name"`
	TargetName  string `json:"survey_target_name"`
	UniqueID    string `json:"survey_unique_id"`
}

// NewContextualInfo fills blank chassis and target names with
// [NotAvailable]. The unique identifier is kept as given.
func NewContextualInfo(chassis, target, uid string) ContextualInfo {
	if chassis == "" {
		chassis = NotAvailable
	}
	if target == "" {
		target = NotAvailable
	}
	return ContextualInfo{ChassisName: chassis, TargetName: target, UniqueID: uid}
}

// PathwayInfo summarizes one pathway for the viewer's pathway table.
type PathwayInfo struct {
	ID          string             `json:"path_id"`
	Name        string             `json:"name"`
	Source      string             `json:"source"`
	ReactionIDs []string           `json:"reaction_ids"`
	ChemicalIDs []string           `json:"chemical_ids"`
	TargetID    string             `json:"target_id,omitempty"`
	NbReactions int                `json:"nb_reactions"`
	Scores      map[string]float64 `json:"scores"`
}

// PathwaysInfo returns the per-pathway summaries keyed by pathway ID.
// Chemical IDs are listed in order of first appearance along the pathway.
func (n *Network) PathwaysInfo() map[string]PathwayInfo {
	out := make(map[string]PathwayInfo, len(n.pathways))
	for id, p := range n.pathways {
		var chems []string
		for _, rid := range p.Reactions {
			for _, cid := range n.reactions[rid].Chemicals() {
				if !slices.Contains(chems, cid) {
					chems = append(chems, cid)
				}
			}
		}
		scores := p.Scores
		if scores == nil {
			scores = map[string]float64{}
		}
		out[id] = PathwayInfo{
			ID:          id,
			Name:        p.Name,
			Source:      p.Source,
			ReactionIDs: slices.Clone(p.Reactions),
			ChemicalIDs: chems,
			TargetID:    p.TargetID,
			NbReactions: len(p.Reactions),
			Scores:      scores,
		}
	}
	return out
}
