// Package depict computes 2D structure depictions for chemicals.
//
// A depiction is produced in three steps: [ParseSMILES] builds a molecule
// graph, [ToDOT] turns it into an undirected Graphviz graph, and a
// [Renderer] lays it out with neato and emits SVG. [Annotator] runs this for
// every chemical of a network in parallel, caching results by structure.
//
// Depiction failures are per chemical: a chemical whose structure cannot
// be parsed or rendered, or whose rendering exceeds the timeout, keeps an
// empty depiction and the failure is reported as an ANNOTATION_WARNING.
package depict
