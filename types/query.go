package types

// Entity is a named entity extracted from a query.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ExpansionTerm is one term added by the knowledge expander. Source records
// which entity produced the term (provenance), Weight falls off with graph
// distance from that entity.
type ExpansionTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Source string  `json:"source"`
}

// ExpandedQuery is the output of the knowledge-expansion stage. When no
// entities match the graph, Terms is empty and the query passes through
// unchanged.
type ExpandedQuery struct {
	Original string          `json:"original"`
	Entities []Entity        `json:"entities,omitempty"`
	Terms    []ExpansionTerm `json:"terms,omitempty"`
}

// HasExpansions reports whether any expansion terms were produced.
func (q ExpandedQuery) HasExpansions() bool {
	return len(q.Terms) > 0
}
