package sbml

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// annotations holds what was extracted from one SBML annotation block.
type annotations struct {
	// fields maps a BRSynth field name to its values in document order.
	fields map[string][]string
	// xrefs maps a MIRIAM collection to identifiers.
	xrefs map[string][]string
}

// first returns the first value of a BRSynth field.
func (a annotations) first(name string) string {
	if v := a.fields[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// scores returns every BRSynth field holding a single finite number, except
// those listed in skip.
func (a annotations) scores(skip ...string) map[string]float64 {
	out := make(map[string]float64)
next:
	for name, vals := range a.fields {
		for _, s := range skip {
			if name == s {
				continue next
			}
		}
		if len(vals) != 1 {
			continue
		}
		f, err := strconv.ParseFloat(vals[0], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[name] = f
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseAnnotation walks the raw annotation XML.
//
// BRSynth fields are the direct children of a <brsynth> element. A field
// value is taken from its "value" attribute, or from its text, or from the
// same on nested list items, so both
//
//	<brsynth:rule_score value="0.7"/>
//	<brsynth:ec_number><rdf:Bag><rdf:li rdf:value="1.1.1.1"/></rdf:Bag></brsynth:ec_number>
//
// are understood. Cross references come from rdf:resource attributes under
// <bqbiol:is>.
func parseAnnotation(raw []byte) (annotations, error) {
	a := annotations{fields: map[string][]string{}, xrefs: map[string][]string{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return a, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false

	depth := 0
	brsynthDepth := -1
	isDepth := -1
	field := ""
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return a, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case brsynthDepth < 0 && t.Name.Local == "brsynth":
				brsynthDepth = depth
			case brsynthDepth > 0 && depth == brsynthDepth+1:
				field = t.Name.Local
				text.Reset()
			case isDepth < 0 && t.Name.Local == "is":
				isDepth = depth
			}
			for _, attr := range t.Attr {
				switch {
				case field != "" && attr.Name.Local == "value":
					a.add(field, attr.Value)
				case isDepth > 0 && attr.Name.Local == "resource":
					if db, id, ok := splitResource(attr.Value); ok {
						a.xrefs[db] = append(a.xrefs[db], id)
					}
				}
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if field != "" {
				if s := strings.TrimSpace(text.String()); s != "" {
					a.add(field, s)
				}
				text.Reset()
				if depth == brsynthDepth+1 {
					field = ""
				}
			}
			switch depth {
			case brsynthDepth:
				brsynthDepth = -1
			case isDepth:
				isDepth = -1
			}
			depth--
		}
	}
	return a, nil
}

func (a annotations) add(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	a.fields[field] = append(a.fields[field], value)
}

// splitResource turns a MIRIAM URI into a collection and an identifier.
// Both path style (identifiers.org/chebi/CHEBI:15422) and compact style
// (identifiers.org/chebi:CHEBI:15422) URIs are accepted.
func splitResource(uri string) (db, id string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return "", "", false
	}
	rest := strings.TrimPrefix(u.Path, "/")
	if u.Scheme == "urn" {
		rest, _ = url.PathUnescape(strings.TrimPrefix(u.Opaque, "miriam:"))
	}
	if i := strings.Index(rest, "/"); i > 0 {
		db, id = rest[:i], rest[i+1:]
	} else if i := strings.Index(rest, ":"); i > 0 {
		db, id = rest[:i], rest[i+1:]
	}
	if db == "" || id == "" {
		return "", "", false
	}
	return db, id, true
}
