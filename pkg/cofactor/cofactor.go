// Package cofactor classifies chemicals as cofactors using a reference
// table of structure identifiers.
//
// A table line holds an identifier (InChIKey, InChI or SMILES, detected
// per line) and an optional tab-separated label. Lines starting with '#'
// are comments. A chemical is a cofactor when any of its normalized
// identifiers matches an entry of the same kind.
package cofactor

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/network"
)

//go:embed data/cofactors.tsv
var defaultTable string

// Table maps normalized structure identifiers to cofactor labels.
type Table struct {
	byKey    map[string]string
	byInChI  map[string]string
	bySMILES map[string]string
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(strings.NewReader(defaultTable))
	if err != nil {
		panic("cofactor: embedded table: " + err.Error())
	}
	return t
}

// Load reads a table from path. A missing or unreadable file is an
// ANNOTATION_WARNING.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeAnnotation, err, "cofactor table %s", path)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeAnnotation, err, "cofactor table %s", path)
	}
	return t, nil
}

// Parse reads a table from r.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{
		byKey:    make(map[string]string),
		byInChI:  make(map[string]string),
		bySMILES: make(map[string]string),
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, label, _ := strings.Cut(line, "\t")
		t.add(id, strings.TrimSpace(label))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) add(id, label string) {
	if label == "" {
		label = strings.TrimSpace(id)
	}
	if k := network.NormalizeInChIKey(id); k != "" {
		t.byKey[k] = label
		return
	}
	if k := network.NormalizeInChI(id); k != "" {
		t.byInChI[k] = label
		return
	}
	if k := network.NormalizeSMILES(id); k != "" {
		t.bySMILES[k] = label
	}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.byKey) + len(t.byInChI) + len(t.bySMILES)
}

// Lookup returns the label of the entry matching s.
func (t *Table) Lookup(s network.Structure) (string, bool) {
	n := s.Normalized()
	if n.InChIKey != "" {
		if l, ok := t.byKey[n.InChIKey]; ok {
			return l, true
		}
	}
	if n.InChI != "" {
		if l, ok := t.byInChI[n.InChI]; ok {
			return l, true
		}
	}
	if n.SMILES != "" {
		if l, ok := t.bySMILES[n.SMILES]; ok {
			return l, true
		}
	}
	return "", false
}

// Annotate sets the cofactor flag of every chemical in n, true for table
// matches and false otherwise. A nil table clears every flag. It returns
// the number of cofactors found.
func Annotate(n *network.Network, t *Table) int {
	count := 0
	for _, c := range n.Chemicals() {
		c.Cofactor = false
		if t == nil {
			continue
		}
		if _, ok := t.Lookup(c.Structure); ok {
			c.Cofactor = true
			count++
		}
	}
	return count
}

// Annotator applies a table chosen by path.
type Annotator struct {
	// Path of a custom table. Empty selects the built-in table.
	Path   string
	Logger *log.Logger
}

// Annotate classifies the chemicals of n. When the custom table cannot be
// loaded every chemical is left non-cofactor and the ANNOTATION_WARNING is
// returned; the network is still usable.
func (a Annotator) Annotate(n *network.Network) (int, error) {
	logger := a.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	t := Default()
	if a.Path != "" {
		var err error
		if t, err = Load(a.Path); err != nil {
			Annotate(n, nil)
			logger.Warn("cofactor annotation skipped", "table", a.Path, "err", err)
			return 0, err
		}
	}
	count := Annotate(n, t)
	logger.Debug("annotated cofactors", "cofactors", count, "chemicals", n.ChemicalCount(), "entries", t.Len())
	return count, nil
}
