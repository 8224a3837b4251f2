// Package network provides the reaction network model shared by every
// rpviz pipeline stage.
//
// # Overview
//
// A [Network] holds three kinds of entities, each keyed by a unique
// identifier:
//
//   - [Chemical]: a compound with a display name, a [Structure] (SMILES,
//     InChI, InChIKey), an optional SVG depiction and a cofactor flag
//   - [Reaction]: ordered substrate and product lists with stoichiometric
//     coefficients, an optional enzyme annotation and the set of pathways
//     it belongs to
//   - [Pathway]: an ordered sequence of reaction identifiers together with
//     the model file it was read from
//
// The constructors enforce referential integrity at insertion time:
// [Network.AddReaction] rejects participants that are not already in the
// network and [Network.AddPathway] rejects unknown reactions. A Network can
// therefore never hold a dangling reference.
//
// # Fragments and merging
//
// The model loader produces one [Fragment] per input file. Fragments use
// file-local identifiers and are not validated on construction. A [Merger]
// validates each fragment as a whole, then folds it into a single Network:
//
//	m := network.NewMerger(logger)
//	for _, f := range fragments {
//	    if err := m.Add(f); err != nil {
//	        // the whole fragment was skipped; err is a PARSE_ERROR
//	    }
//	}
//	n := m.Network()
//
// Chemicals from different fragments collapse into one entry when their
// identity keys match (see [Structure.Key] for the normalization policy).
// Reaction and pathway identifiers are kept as-is unless they collide with
// an entry from an earlier fragment, in which case they are prefixed with
// the fragment name.
//
// # Concurrency
//
// Network is not safe for concurrent mutation. Annotators that work in
// parallel compute their results first and apply them sequentially.
package network
