// Package rules implements the deterministic keyword classifier used for
// English pages.
package rules

import (
	"strings"

	"github.com/JakeFAU/sitecat/internal/category"
)

// ClothingKeywords are matched as case-insensitive substrings.
var ClothingKeywords = []string{
	"clothing", "clothes", "clothings", "apparel", "appaerls",
	"dress", "dresses", "tops", "top", "pants", "pant",
	"trousers", "trouser", "jeans", "jean", "shorts", "short",
	"skirts", "skirt", "shirts", "shirt", "jackets", "jacket",
	"blouse", "blouses", "coats", "coat", "suits", "suit",
}

// ShoesKeywords are matched as case-insensitive substrings.
var ShoesKeywords = []string{
	"shoes", "shoe", "footwears", "footwear", "boots", "boot",
	"trainers", "trainer", "sneakers", "sneaker", "sandals", "sandal",
	"heels", "flats",
}

// LingerieKeywords are matched as case-insensitive substrings.
var LingerieKeywords = []string{
	"bras", "bra", "lingerie", "lingeries", "lingerie sets", "lingerie set",
	"underwear", "underwears", "undergarments", "undergarment",
	"boxers", "boxer", "briefs", "brief", "panties", "panty",
}

// Match lists the keywords of each list found in a metadata blob.
type Match struct {
	Clothing []string
	Shoes    []string
	Lingerie []string
}

// Code applies the decision order to the matched lists.
func (m Match) Code() category.Code {
	switch {
	case len(m.Clothing) > 0 && len(m.Shoes) > 0:
		return category.ClothingAndShoes
	case len(m.Clothing) > 0:
		return category.Clothing
	case len(m.Shoes) > 0:
		return category.Shoes
	case len(m.Lingerie) > 0:
		return category.Lingerie
	default:
		return category.None
	}
}

// Matches reports every keyword hit per list.
func Matches(metadata string) Match {
	lower := strings.ToLower(metadata)
	return Match{
		Clothing: hits(lower, ClothingKeywords),
		Shoes:    hits(lower, ShoesKeywords),
		Lingerie: hits(lower, LingerieKeywords),
	}
}

// Classify maps metadata to a category code. First match wins:
// clothing and shoes, clothing, shoes, lingerie, otherwise None.
func Classify(metadata string) category.Code {
	lower := strings.ToLower(metadata)
	clothing := containsAny(lower, ClothingKeywords)
	shoes := containsAny(lower, ShoesKeywords)
	switch {
	case clothing && shoes:
		return category.ClothingAndShoes
	case clothing:
		return category.Clothing
	case shoes:
		return category.Shoes
	case containsAny(lower, LingerieKeywords):
		return category.Lingerie
	default:
		return category.None
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hits(lower string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}
