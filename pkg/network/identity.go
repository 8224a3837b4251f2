package network

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// inchiKeyRe matches a standard or non-standard InChIKey.
var inchiKeyRe = regexp.MustCompile(`^[A-Z]{14}-[A-Z]{8}[SN][A-Z]-[A-Z]$`)

// Structure carries the structure identifiers known for a chemical.
// Any of the fields may be empty.
type Structure struct {
	SMILES   string `json:"smiles,omitempty"`
	InChI    string `json:"inchi,omitempty"`
	InChIKey string `json:"inchikey,omitempty"`
}

// NormalizeInChIKey trims and upper-cases an InChIKey. It returns the empty
// string when the result is not a well-formed key.
func NormalizeInChIKey(s string) string {
	k := strings.ToUpper(strings.TrimSpace(norm.NFC.String(s)))
	if !inchiKeyRe.MatchString(k) {
		return ""
	}
	return k
}

// NormalizeInChI trims an InChI string. It returns the empty string when the
// value does not carry the "InChI=" prefix.
func NormalizeInChI(s string) string {
	v := strings.TrimSpace(norm.NFC.String(s))
	if !strings.HasPrefix(v, "InChI=") {
		return ""
	}
	return v
}

// NormalizeSMILES trims a SMILES string and drops anything after the first
// whitespace, which SMILES reserves for a free-text title. Letter case is
// significant in SMILES and is preserved.
func NormalizeSMILES(s string) string {
	v := strings.TrimSpace(norm.NFC.String(s))
	if i := strings.IndexAny(v, " \t\r\n"); i >= 0 {
		v = v[:i]
	}
	return v
}

// Normalized returns a copy of s with every identifier normalized.
// Malformed InChI and InChIKey values are dropped.
func (s Structure) Normalized() Structure {
	return Structure{
		SMILES:   NormalizeSMILES(s.SMILES),
		InChI:    NormalizeInChI(s.InChI),
		InChIKey: NormalizeInChIKey(s.InChIKey),
	}
}

// Key returns the identity key used to deduplicate chemicals.
//
// The first available normalized identifier wins, in this order: InChIKey,
// InChI, SMILES. Two chemicals are the same chemical exactly when their keys
// are equal. No tautomer or stereo canonicalization is attempted, so a
// chemical known only by SMILES never matches one known by InChIKey.
// An empty key means the chemical carries no usable structure.
func (s Structure) Key() string {
	n := s.Normalized()
	switch {
	case n.InChIKey != "":
		return n.InChIKey
	case n.InChI != "":
		return n.InChI
	default:
		return n.SMILES
	}
}

// IsEmpty reports whether no identifier is set.
func (s Structure) IsEmpty() bool {
	return s.SMILES == "" && s.InChI == "" && s.InChIKey == ""
}

// fill copies identifiers from o into the fields of s that are empty.
func (s *Structure) fill(o Structure) {
	if s.SMILES == "" {
		s.SMILES = o.SMILES
	}
	if s.InChI == "" {
		s.InChI = o.InChI
	}
	if s.InChIKey == "" {
		s.InChIKey = o.InChIKey
	}
}
