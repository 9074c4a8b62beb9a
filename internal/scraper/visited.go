package scraper

// VisitedSet records the product URLs already handed to the resolver during
// one crawl. It only grows. It is not safe for concurrent use; each crawl
// owns its own set.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add marks rawURL as visited and reports whether it was new.
func (v *VisitedSet) Add(rawURL string) bool {
	key := visitedKey(rawURL)
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether rawURL was already added.
func (v *VisitedSet) Contains(rawURL string) bool {
	_, ok := v.seen[visitedKey(rawURL)]
	return ok
}

// Len returns the number of distinct URLs recorded.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}

func visitedKey(rawURL string) string {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return rawURL
	}
	return key
}
