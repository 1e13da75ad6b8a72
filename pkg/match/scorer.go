package match

import "strings"

// Weights of the combined score when the query names a house.
const (
	StreetWeight = 0.7
	HouseWeight  = 0.3
	// NeutralHouse is the house similarity used when the query has no house number.
	NeutralHouse = 0.5
)

// HouseSimilarity compares a query house fragment with a record's comparable house, in [0,1].
func HouseSimilarity(queryHouse, candidateHouse string) float64 {
	if queryHouse == "" {
		return NeutralHouse
	}
	if candidateHouse == "" {
		return 0
	}
	return Ratio(strings.ToLower(queryHouse), strings.ToLower(candidateHouse)) / 100
}

// Score combines street similarity in [0,1] with the house term.
// Without a query house the street similarity is the score.
func Score(streetSimilarity float64, queryHouse, candidateHouse string) float64 {
	if queryHouse == "" {
		return clamp(streetSimilarity, 0, 1)
	}
	house := HouseSimilarity(queryHouse, candidateHouse)
	return clamp(StreetWeight*streetSimilarity+HouseWeight*house, 0, 1)
}
