package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		raw         string
		street      string
		house       string
		description string
	}{
		{"Дурова 4", "дурова", "4", "Plain street and number"},
		{"Москва, ул. Дурова, 4", "ул. дурова", "4", "Locality already present"},
		{"москва ул. Дурова 4", "ул. дурова", "4", "Locality is matched case-insensitively"},
		{"ул. Дурова, д. 4", "ул. дурова", "4", "House marker with dot"},
		{"Дурова дом 4", "дурова", "4", "House marker word"},
		{"Дурова 4а", "дурова", "4а", "Letter suffix"},
		{"Советский пр-т 10 к 2", "советский пр-т", "10к2", "Spaced corpus qualifier"},
		{"Советский пр-т 10к2с1", "советский пр-т", "10к2с1", "Glued qualifiers"},
		{"Советский пр-т 10 к. 2", "советский пр-т", "10к2", "Dotted qualifier"},
		{"Дурова 12/3", "дурова", "12/3", "Slash number"},
		{"8 Марта 4", "8 марта", "4", "Leading number stays in the street"},
		{"2-я Тверская-Ямская", "2-я тверская-ямская", "", "No trailing number"},
		{"4 Дурова", "4 дурова", "", "House number before the street is not recognised"},
		{"Дурова", "дурова", "", "No house"},
		{"  Дурова   4  ", "дурова", "4", "Extra whitespace"},
		{"Московская 5", "московская", "5", "Locality prefix requires a word boundary"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			q, err := Parse(tc.raw, "Москва")
			require.NoError(t, err)
			assert.Equal(t, tc.raw, q.Raw)
			assert.Equal(t, "Москва", q.Locality)
			assert.Equal(t, tc.street, q.Street)
			assert.Equal(t, tc.house, q.House)
			assert.Equal(t, tc.house != "", q.HasHouse())
		})
	}
}

func TestParseDefaultLocality(t *testing.T) {
	q, err := Parse("Дурова 4", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocality, q.Locality)

	q, err = Parse("Санкт-Петербург, Невский проспект 28", "Санкт-Петербург")
	require.NoError(t, err)
	assert.Equal(t, "невский проспект", q.Street)
	assert.Equal(t, "28", q.House)
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "Москва", "москва,", "4", "Москва, 12к1", ", ,"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw, "Москва")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}
