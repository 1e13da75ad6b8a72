package match

import (
	"sort"

	"github.com/bastiangx/addrserve/pkg/index"
)

// MatchCandidate is a scored reference to an index position.
type MatchCandidate struct {
	Pos              int
	StreetSimilarity float64
	HouseSimilarity  float64
	FinalScore       float64
}

// Object is one ranked address in a SearchResult. Street and Number are the
// record's original spelling.
type Object struct {
	ID        int64   `json:"id,omitempty" msgpack:"id,omitempty"`
	Locality  string  `json:"locality" msgpack:"locality"`
	Street    string  `json:"street" msgpack:"street"`
	Number    string  `json:"number" msgpack:"number"`
	Building  string  `json:"building,omitempty" msgpack:"building,omitempty"`
	Structure string  `json:"structure,omitempty" msgpack:"structure,omitempty"`
	Lon       float64 `json:"lon" msgpack:"lon"`
	Lat       float64 `json:"lat" msgpack:"lat"`
	Score     float64 `json:"score" msgpack:"score"`
}

// SearchResult is the answer to one search.
type SearchResult struct {
	SearchedAddress string   `json:"searched_address" msgpack:"searched_address"`
	Objects         []Object `json:"objects" msgpack:"objects"`
}

// Rank orders candidates by final score, then index position, keeps the first topN and
// maps them to Objects labelled with locality. topN <= 0 gives no objects.
func Rank(idx *index.Index, candidates []MatchCandidate, topN int, locality, searched string) SearchResult {
	res := SearchResult{SearchedAddress: searched, Objects: []Object{}}
	if topN <= 0 || len(candidates) == 0 {
		return res
	}

	sorted := make([]MatchCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FinalScore != sorted[j].FinalScore {
			return sorted[i].FinalScore > sorted[j].FinalScore
		}
		return sorted[i].Pos < sorted[j].Pos
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	res.Objects = make([]Object, 0, len(sorted))
	for _, c := range sorted {
		rec := idx.Entry(c.Pos).Record
		res.Objects = append(res.Objects, Object{
			ID:        rec.ID,
			Locality:  locality,
			Street:    rec.Street,
			Number:    rec.House,
			Building:  rec.Building,
			Structure: rec.Structure,
			Lon:       rec.Lon,
			Lat:       rec.Lat,
			Score:     c.FinalScore,
		})
	}
	return res
}
