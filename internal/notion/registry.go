package notion

// PageRef is what the registry knows about a child page.
type PageRef struct {
	Title    string // plain-text title
	ParentID string // root page id of the page the reference was found on
}

// PageRegistry accumulates every page block seen during one crawl. It is
// written by the renderer and read by the scheduler when it builds subpage
// URLs. Not safe for concurrent use.
type PageRegistry struct {
	pages map[string]PageRef
	order []string
}

// NewPageRegistry returns an empty registry.
func NewPageRegistry() *PageRegistry {
	return &PageRegistry{pages: make(map[string]PageRef)}
}

// Record stores or overwrites the entry for id.
func (r *PageRegistry) Record(id, title, parentID string) {
	if _, ok := r.pages[id]; !ok {
		r.order = append(r.order, id)
	}
	r.pages[id] = PageRef{Title: title, ParentID: parentID}
}

// Lookup returns the entry for id.
func (r *PageRegistry) Lookup(id string) (PageRef, bool) {
	ref, ok := r.pages[id]
	return ref, ok
}

// IDs returns all recorded ids in first-seen order.
func (r *PageRegistry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of recorded pages.
func (r *PageRegistry) Len() int {
	return len(r.order)
}
