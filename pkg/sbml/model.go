package sbml

// Only the parts of an SBML level 3 document the viewer needs are mapped.
// Element names match on local name, so the core and groups namespaces are
// both accepted without prefixes.

type document struct {
	Model *model `xml:"model"`
}

type model struct {
	ID        string     `xml:"id,attr"`
	Name      string     `xml:"name,attr"`
	Species   []species  `xml:"listOfSpecies>species"`
	Reactions []reaction `xml:"listOfReactions>reaction"`
	Groups    []group    `xml:"listOfGroups>group"`
}

type species struct {
	ID          string     `xml:"id,attr"`
	Name        string     `xml:"name,attr"`
	Compartment string     `xml:"compartment,attr"`
	Annotation  annotation `xml:"annotation"`
}

type reaction struct {
	ID         string             `xml:"id,attr"`
	Name       string             `xml:"name,attr"`
	Reactants  []speciesReference `xml:"listOfReactants>speciesReference"`
	Products   []speciesReference `xml:"listOfProducts>speciesReference"`
	Modifiers  []speciesReference `xml:"listOfModifiers>modifierSpeciesReference"`
	Annotation annotation         `xml:"annotation"`
}

type speciesReference struct {
	Species       string `xml:"species,attr"`
	Stoichiometry string `xml:"stoichiometry,attr"`
}

type group struct {
	ID         string     `xml:"id,attr"`
	Name       string     `xml:"name,attr"`
	Members    []member   `xml:"listOfMembers>member"`
	Annotation annotation `xml:"annotation"`
}

type member struct {
	IDRef string `xml:"idRef,attr"`
}

type annotation struct {
	Inner []byte `xml:",innerxml"`
}
