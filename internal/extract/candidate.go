// internal/extract/candidate.go
package extract

// Candidate is the transient bag of fields extracted from one remote
// page. It is consumed immediately by the matcher and never persisted
// verbatim.
type Candidate struct {
	URL              string     `json:"url"`
	Name             string     `json:"name,omitempty"`
	Price            float64    `json:"price,omitempty"`
	ComparePrice     float64    `json:"compare_price,omitempty"`
	ShortDescription string     `json:"short_description,omitempty"`
	LongDescription  string     `json:"long_description,omitempty"`
	BrandText        string     `json:"brand_text,omitempty"`
	CategoryText     string     `json:"category_text,omitempty"`
	Images           []ImageRef `json:"images,omitempty"`
	InStock          bool       `json:"in_stock"`
	StockQuantity    int        `json:"stock_quantity"`
	Weight           string     `json:"weight,omitempty"`
	Ingredients      string     `json:"ingredients,omitempty"`
}

// ImageRef is one candidate product image with its alt text.
type ImageRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// HasPrice reports whether a plausible price was found. Zero is the
// "unknown price" sentinel.
func (c *Candidate) HasPrice() bool { return c.Price > 0 }
