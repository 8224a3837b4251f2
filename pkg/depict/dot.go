package depict

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// cpk holds label colours for heteroatoms; anything else is drawn grey.
var cpk = map[string]string{
	"N":  "#3050F8",
	"O":  "#FF0D0D",
	"S":  "#C9A400",
	"P":  "#FF8000",
	"F":  "#4FA000",
	"Cl": "#1F9F1F",
	"Br": "#A62929",
	"I":  "#940094",
	"B":  "#C08080",
	"Se": "#C08000",
}

const defaultAtomColor = "#404040"

// ToDOT converts a molecule to an undirected Graphviz graph meant for the
// neato engine. Carbons without charge or isotope are drawn as bond
// junctions; other atoms carry their symbol, hydrogens and charge.
func ToDOT(m *Molecule) string {
	var buf bytes.Buffer
	buf.WriteString("graph molecule {\n")
	buf.WriteString("  graph [bgcolor=\"transparent\", overlap=false, splines=false, start=1, pack=true, pad=0.1];\n")
	buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=14, width=0.01, height=0.01, margin=0.02];\n")
	buf.WriteString("  edge [len=0.55, penwidth=1.6, color=\"#202020\"];\n")
	buf.WriteString("\n")

	for i, a := range m.Atoms {
		fmt.Fprintf(&buf, "  a%d [%s];\n", i, strings.Join(atomAttrs(a), ", "))
	}
	buf.WriteString("\n")
	for _, b := range m.Bonds {
		attrs := bondAttrs(b)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  a%d -- a%d;\n", b.From, b.To)
			continue
		}
		fmt.Fprintf(&buf, "  a%d -- a%d [%s];\n", b.From, b.To, strings.Join(attrs, ", "))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func atomAttrs(a Atom) []string {
	if a.Element == "C" && a.Charge == 0 && a.Isotope == 0 {
		return []string{`label=""`, "shape=point", "width=0.02", `color="#202020"`}
	}
	color, ok := cpk[a.Element]
	if !ok {
		color = defaultAtomColor
	}
	return []string{
		"label=" + strconv.Quote(AtomLabel(a)),
		fmt.Sprintf("fontcolor=%q", color),
	}
}

// AtomLabel renders an atom as text: isotope, symbol, hydrogens, charge,
// e.g. "NH3+", "13C", "O-".
func AtomLabel(a Atom) string {
	var sb strings.Builder
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(a.Element)
	switch {
	case a.HCount == 1:
		sb.WriteString("H")
	case a.HCount > 1:
		sb.WriteString("H" + strconv.Itoa(a.HCount))
	}
	switch {
	case a.Charge == 1:
		sb.WriteString("+")
	case a.Charge == -1:
		sb.WriteString("-")
	case a.Charge > 1:
		sb.WriteString(strconv.Itoa(a.Charge) + "+")
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(-a.Charge) + "-")
	}
	return sb.String()
}

func bondAttrs(b Bond) []string {
	switch {
	case b.Aromatic:
		return []string{`color="#202020:invis:#909090"`}
	case b.Order == 2:
		return []string{`color="#202020:invis:#202020"`}
	case b.Order == 3:
		return []string{`color="#202020:invis:#202020:invis:#202020"`}
	case b.Order == 4:
		return []string{`color="#202020:invis:#202020:invis:#202020:invis:#202020"`}
	}
	return nil
}
