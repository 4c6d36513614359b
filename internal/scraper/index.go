package scraper

import (
	"regexp"

	"github.com/fdg312/dining-planner/internal/menu"
)

// ReportRef ties an opaque report id to the location and meal it is assumed
// to describe.
type ReportRef struct {
	ID         string    `json:"id"`
	Location   string    `json:"location"`
	LocationID string    `json:"location_id"`
	Meal       menu.Meal `json:"meal"`
}

// ExtractStrategy names the heuristic that produced a set of refs.
type ExtractStrategy string

const (
	StrategyNested    ExtractStrategy = "nested"
	StrategyFlatSlice ExtractStrategy = "flat_slice"
	StrategyNone      ExtractStrategy = "none"
)

// LocationInfo is a known dining location.
type LocationInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Locations is the order in which location groups appear in the index
// page's navigation tree. The page carries no location label next to the
// groups, so this order is the only mapping from group to location and must
// be re-checked against fixtures when the site changes.
var Locations = []LocationInfo{
	{ID: "campusone", Name: "CampusOne Dining Hall"},
	{ID: "chestnut", Name: "Chestnut Residence"},
	{ID: "msb", Name: "Medical Science Building (MSB) Cafeteria"},
	{ID: "newcollege", Name: "New College Dining Hall"},
	{ID: "oakhouse", Name: "Oak House Dining Hall"},
	{ID: "robarts", Name: "Robarts Cafeteria"},
	{ID: "sidneysmith", Name: "Sidney Smith Cafeteria"},
}

// LookupLocation returns the known location with id.
func LookupLocation(id string) (LocationInfo, bool) {
	for _, loc := range Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return LocationInfo{}, false
}

// flatSlices are the fixed offsets of each dining hall's three ids in the
// flat id sequence. MSB (6-13) and the cafeterias are skipped.
var flatSlices = []struct {
	locationID string
	start      int
}{
	{"campusone", 0},
	{"chestnut", 3},
	{"newcollege", 14},
	{"oakhouse", 17},
}

const guid = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

var (
	navTreePattern  = regexp.MustCompile(`'items':\[\{'name':'noaction','items':\[([\s\S]*?)\]\}\]`)
	groupPattern    = regexp.MustCompile(`\{'name':'noaction','items':\[((?:\{'name':'[^']+'\},?)+)\]\}`)
	groupIDPattern  = regexp.MustCompile(`\{'name':'(` + guid + `)'\}`)
	flatGUIDPattern = regexp.MustCompile(`name':'(` + guid + `)'`)
)

// ExtractReports recovers report refs from an index page, trying the nested
// group heuristic first and the flat-slice fallback second.
func ExtractReports(html []byte) ([]ReportRef, ExtractStrategy) {
	return extractReports(html, true)
}

// extractReports is the only place the two heuristics are chosen between.
// allowFlat=false turns the fallback off.
func extractReports(html []byte, allowFlat bool) ([]ReportRef, ExtractStrategy) {
	if navTreePattern.Match(html) {
		return extractNested(html), StrategyNested
	}
	if !allowFlat {
		return nil, StrategyNone
	}
	refs := extractFlat(html)
	if len(refs) == 0 {
		return nil, StrategyNone
	}
	return refs, StrategyFlatSlice
}

// extractNested maps the i-th id group to the i-th entry of Locations.
// Only groups of exactly three ids are dining halls with a breakfast, lunch
// and dinner report; multi-station cafeterias are skipped.
func extractNested(html []byte) []ReportRef {
	var groups [][]string
	for _, m := range groupPattern.FindAllSubmatch(html, -1) {
		var ids []string
		for _, idm := range groupIDPattern.FindAllSubmatch(m[1], -1) {
			ids = append(ids, string(idm[1]))
		}
		if len(ids) > 0 {
			groups = append(groups, ids)
		}
	}

	var refs []ReportRef
	for i := 0; i < len(groups) && i < len(Locations); i++ {
		if len(groups[i]) != len(menu.Meals) {
			continue
		}
		loc := Locations[i]
		for j, meal := range menu.Meals {
			refs = append(refs, ReportRef{
				ID:         groups[i][j],
				Location:   loc.Name,
				LocationID: loc.ID,
				Meal:       meal,
			})
		}
	}
	return refs
}

func extractFlat(html []byte) []ReportRef {
	var ids []string
	for _, m := range flatGUIDPattern.FindAllSubmatch(html, -1) {
		ids = append(ids, string(m[1]))
	}

	var refs []ReportRef
	for _, slice := range flatSlices {
		loc, _ := LookupLocation(slice.locationID)
		for j, meal := range menu.Meals {
			idx := slice.start + j
			if idx >= len(ids) {
				break
			}
			refs = append(refs, ReportRef{
				ID:         ids[idx],
				Location:   loc.Name,
				LocationID: loc.ID,
				Meal:       meal,
			})
		}
	}
	return refs
}
