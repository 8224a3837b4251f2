package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/rpviz/pkg/network"
)

// Variable names assigned in network.json.
const (
	varNetwork      = "network"
	varPathwaysInfo = "pathways_info"
	varContextual   = "contextual_info"
)

// Document is the content of network.json.
type Document struct {
	Network        *network.Network
	PathwaysInfo   map[string]network.PathwayInfo
	ContextualInfo network.ContextualInfo
}

// NewDocument builds the document for n, deriving the pathway summaries.
func NewDocument(n *network.Network, info network.ContextualInfo) Document {
	return Document{Network: n, PathwaysInfo: n.PathwaysInfo(), ContextualInfo: info}
}

// WriteDocument writes doc as three JavaScript assignments of indented JSON:
//
//	network = {...};
//	pathways_info = {...};
//	contextual_info = {...};
//
// Map keys are sorted, so equal documents produce identical bytes.
func WriteDocument(w io.Writer, doc Document) error {
	if doc.Network == nil {
		doc.Network = network.New()
	}
	if doc.PathwaysInfo == nil {
		doc.PathwaysInfo = map[string]network.PathwayInfo{}
	}
	vars := []struct {
		name string
		v    any
	}{
		{varNetwork, doc.Network},
		{varPathwaysInfo, doc.PathwaysInfo},
		{varContextual, doc.ContextualInfo},
	}
	var buf bytes.Buffer
	for _, v := range vars {
		data, err := json.MarshalIndent(v.v, "", "    ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", v.name, err)
		}
		fmt.Fprintf(&buf, "%s = ", v.name)
		buf.Write(data)
		buf.WriteString(";\n")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadDocument parses a network.json written by [WriteDocument]. The network
// is rebuilt through its constructors, so dangling references are rejected.
func ReadDocument(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	raw := map[string]json.RawMessage{}
	for {
		data = bytes.TrimLeft(data, " \t\r\n;")
		if len(data) == 0 {
			break
		}
		eq := bytes.IndexByte(data, '=')
		if eq < 0 {
			return Document{}, fmt.Errorf("expected assignment near %q", truncate(data))
		}
		name := string(bytes.TrimSpace(data[:eq]))
		dec := json.NewDecoder(bytes.NewReader(data[eq+1:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return Document{}, fmt.Errorf("decode %s: %w", name, err)
		}
		raw[name] = v
		data = data[eq+1+int(dec.InputOffset()):]
	}

	var doc Document
	for _, name := range []string{varNetwork, varPathwaysInfo, varContextual} {
		if _, ok := raw[name]; !ok {
			return Document{}, fmt.Errorf("missing %s", name)
		}
	}
	doc.Network = network.New()
	if err := json.Unmarshal(raw[varNetwork], doc.Network); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", varNetwork, err)
	}
	if err := json.Unmarshal(raw[varPathwaysInfo], &doc.PathwaysInfo); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", varPathwaysInfo, err)
	}
	if err := json.Unmarshal(raw[varContextual], &doc.ContextualInfo); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", varContextual, err)
	}
	return doc, nil
}

// ReadDocumentFile reads network.json from an assembled viewer directory or
// from the file itself.
func ReadDocumentFile(path string) (Document, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DocumentFile)
	}
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	doc, err := ReadDocument(f)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func truncate(b []byte) string {
	if len(b) > 20 {
		return string(b[:20]) + "..."
	}
	return string(b)
}
