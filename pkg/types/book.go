package types

// DefaultCategory is the category assigned to books added without one.
const DefaultCategory = "Unknown"

// Book is a title held in some quantity under one category.
// (Title, Category) is unique.
type Book struct {
	BookID   string `db:"book_id" json:"book_id"`
	Title    string `db:"title" json:"title"`
	Category string `db:"category" json:"category"`
	Quantity int    `db:"quantity" json:"quantity"` // Copies available to lend, never negative.
}

// Category groups books. Names are case-normalized and unique.
type Category struct {
	Name string `db:"name" json:"name"`
}

// SearchOutcome is the three-way result of a catalog search.
type SearchOutcome int

// Search outcomes.
const (
	// NotFound: no book carries the title in any category.
	NotFound SearchOutcome = iota
	// Found: the title exists in the requested category.
	Found
	// FoundUnderOtherCategory: the title exists, but only in other categories.
	FoundUnderOtherCategory
)

func (o SearchOutcome) String() string {
	switch o {
	case Found:
		return "Found"
	case FoundUnderOtherCategory:
		return "FoundUnderOtherCategory"
	default:
		return "NotFound"
	}
}

// SearchResult carries a catalog search outcome. Book is set when Outcome is
// Found; Matches lists every row with the title when Outcome is
// FoundUnderOtherCategory.
type SearchResult struct {
	Outcome SearchOutcome `json:"outcome"`
	Book    *Book         `json:"book,omitempty"`
	Matches []Book        `json:"matches,omitempty"`
}

// Categories returns the category of every match.
func (r SearchResult) Categories() []string {
	cats := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		cats = append(cats, m.Category)
	}
	return cats
}
