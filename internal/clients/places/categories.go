package places

import "strings"

// trade categories mapped to the index's place type and search keyword
var categoryTypes = map[string]struct {
	placeType string
	keyword   string
}{
	"carpenter":        {"general_contractor", "carpenter joiner"},
	"builder":          {"general_contractor", "builder construction"},
	"electrician":      {"electrician", "electrician electrical contractor"},
	"plumber":          {"plumber", "plumber plumbing services"},
	"roofer":           {"roofing_contractor", "roofer roofing services"},
	"painter":          {"painter", "painter decorator"},
	"landscaper":       {"general_contractor", "landscaper gardening"},
	"plasterer":        {"general_contractor", "plasterer plastering services"},
	"groundworker":     {"general_contractor", "groundwork excavation"},
	"bricklayer":       {"general_contractor", "bricklayer masonry"},
	"heating_engineer": {"plumber", "heating engineer boiler"},
	"kitchen_fitter":   {"general_contractor", "kitchen fitter"},
	"bathroom_fitter":  {"general_contractor", "bathroom fitter"},
	"tiler":            {"general_contractor", "tiler tiling services"},
	"decorator":        {"painter", "decorator painting services"},
}

// googleType maps a trade category to the index place type. Unknown
// categories fall back to general_contractor.
func googleType(category string) string {
	if m, ok := categoryTypes[strings.ToLower(category)]; ok {
		return m.placeType
	}
	return "general_contractor"
}

// searchKeyword maps a trade category to the nearby-search keyword. Unknown
// categories search verbatim.
func searchKeyword(category string) string {
	if m, ok := categoryTypes[strings.ToLower(category)]; ok {
		return m.keyword
	}
	return category
}
