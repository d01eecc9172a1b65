// internal/extract/jsonld.go
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// productSchema is the subset of a schema.org Product node the pipeline
// cares about, flattened from the various shapes sites embed it in.
type productSchema struct {
	Name        string
	Description string
	Brand       string
	Price       string
	InStock     *bool // nil when availability is not declared
	Images      []string
	Weight      string
}

// findProductSchema scans every ld+json script on the page for the
// first node typed as Product. Sites wrap the node in arrays or @graph
// containers freely, so all three shapes are walked. Malformed JSON in
// one script never aborts the scan.
func (d *Document) findProductSchema() *productSchema {
	var found *productSchema
	d.doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw interface{}
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if node := findProductNode(raw); node != nil {
			found = parseProductNode(node)
			return false
		}
		return true
	})
	return found
}

func findProductNode(raw interface{}) map[string]interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		if isProductType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			return findProductNode(graph)
		}
	case []interface{}:
		for _, item := range v {
			if node := findProductNode(item); node != nil {
				return node
			}
		}
	}
	return nil
}

func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Product")
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func parseProductNode(node map[string]interface{}) *productSchema {
	ps := &productSchema{
		Name:        stringField(node["name"]),
		Description: stringField(node["description"]),
		Weight:      stringField(node["weight"]),
	}

	// brand may be a bare string or a nested Brand node
	switch b := node["brand"].(type) {
	case string:
		ps.Brand = b
	case map[string]interface{}:
		ps.Brand = stringField(b["name"])
	}

	ps.Images = stringList(node["image"])

	if offers := firstOffer(node["offers"]); offers != nil {
		ps.Price = stringField(offers["price"])
		if ps.Price == "" {
			ps.Price = stringField(offers["lowPrice"])
		}
		if avail := stringField(offers["availability"]); avail != "" {
			inStock := !strings.Contains(strings.ToLower(avail), "outofstock")
			ps.InStock = &inStock
		}
	}

	return ps
}

func firstOffer(raw interface{}) map[string]interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}

func stringField(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
	return ""
}

func stringList(raw interface{}) []string {
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s := stringField(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case map[string]interface{}:
		// ImageObject node
		if s := stringField(v["url"]); s != "" {
			return []string{s}
		}
	}
	return nil
}
