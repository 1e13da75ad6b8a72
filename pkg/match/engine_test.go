package match

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/normalize"
	"github.com/bastiangx/addrserve/pkg/query"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newEngine(t *testing.T, retriever string) *Engine {
	t.Helper()
	n, err := normalize.New(64)
	require.NoError(t, err)
	r, err := NewRetriever(retriever, Options{}, nil, query.DefaultLocality)
	require.NoError(t, err)
	eng, err := NewEngine(n, r, 0)
	require.NoError(t, err)
	return eng
}

func gazetteer() *index.Index {
	return index.Build([]index.Record{
		{ID: 1, Street: "улица Дурова", House: "4", Lon: 37.6, Lat: 55.7},
		{ID: 2, Street: "улица Дурова", House: "6", Lon: 37.61, Lat: 55.71},
		{ID: 3, Street: "Дурасовский пер.", House: "4"},
		{ID: 4, Street: "ул. Ленина", House: "10", Building: "2"},
		{ID: 5, Street: "Советский пр-т", House: "1"},
		{ID: 6, Street: "Варшавское ш", House: "12А"},
	}, nil)
}

func TestSearchHouseMatch(t *testing.T) {
	idx := index.Build([]index.Record{{ID: 1, Street: "улица Дурова", House: "4", Lon: 37.6, Lat: 55.7}}, nil)

	for _, name := range []string{RetrieverLevenshtein, RetrieverToken} {
		t.Run(name, func(t *testing.T) {
			res, err := newEngine(t, name).Search(idx, "Дурова 4", 3, "Москва")
			require.NoError(t, err)
			assert.Equal(t, "Дурова 4", res.SearchedAddress)
			require.NotEmpty(t, res.Objects)

			top := res.Objects[0]
			assert.Equal(t, "4", top.Number)
			assert.GreaterOrEqual(t, top.Score, 0.9)
			assert.Equal(t, "Москва", top.Locality)
			assert.Equal(t, "улица Дурова", top.Street, "original spelling is returned")
			assert.Equal(t, 37.6, top.Lon)
			assert.Equal(t, 55.7, top.Lat)
		})
	}

	res, err := newEngine(t, RetrieverVector).Search(idx, "Дурова 4", 3, "Москва")
	require.NoError(t, err)
	require.NotEmpty(t, res.Objects)
	assert.Equal(t, "4", res.Objects[0].Number)
}

func TestSearchWithoutHouse(t *testing.T) {
	res, err := newEngine(t, RetrieverLevenshtein).Search(gazetteer(), "Дурова", 3, "Москва")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Objects), 2)

	assert.Equal(t, "4", res.Objects[0].Number)
	assert.Equal(t, "6", res.Objects[1].Number)
	assert.Equal(t, res.Objects[0].Score, res.Objects[1].Score, "house term is neutral for both")
	assert.Equal(t, 1.0, res.Objects[0].Score)

	assert.Equal(t, NeutralHouse, HouseSimilarity("", "4"))
	assert.Equal(t, NeutralHouse, HouseSimilarity("", "6"))
}

func TestSearchHouseDisambiguates(t *testing.T) {
	res, err := newEngine(t, RetrieverLevenshtein).Search(gazetteer(), "ул. Дурова, д. 6", 2, "Москва")
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "6", res.Objects[0].Number)
	assert.Equal(t, 1.0, res.Objects[0].Score)
	assert.Less(t, res.Objects[1].Score, res.Objects[0].Score)
}

func TestSearchBuildingQualifier(t *testing.T) {
	res, err := newEngine(t, RetrieverLevenshtein).Search(gazetteer(), "Ленина 10 к2", 1, "Москва")
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "10", res.Objects[0].Number)
	assert.Equal(t, "2", res.Objects[0].Building)
	assert.Equal(t, 1.0, res.Objects[0].Score)
}

func TestSearchEmptyIndex(t *testing.T) {
	eng := newEngine(t, RetrieverLevenshtein)
	empty := index.Build(nil, nil)

	for _, q := range []string{"Дурова 4", "", "Москва", "12"} {
		res, err := eng.Search(empty, q, 3, "Москва")
		require.NoError(t, err, q)
		assert.Equal(t, q, res.SearchedAddress)
		assert.NotNil(t, res.Objects)
		assert.Empty(t, res.Objects)
	}
}

func TestSearchTopN(t *testing.T) {
	eng := newEngine(t, RetrieverLevenshtein)

	for _, topN := range []int{0, -1} {
		res, err := eng.Search(gazetteer(), "Дурова 4", topN, "Москва")
		require.NoError(t, err)
		assert.NotNil(t, res.Objects)
		assert.Empty(t, res.Objects)
	}

	res, err := eng.Search(gazetteer(), "Дурова", 1, "Москва")
	require.NoError(t, err)
	assert.Len(t, res.Objects, 1)
}

func TestSearchInvalidQuery(t *testing.T) {
	_, err := newEngine(t, RetrieverLevenshtein).Search(gazetteer(), "Москва, 4", 3, "Москва")
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "Москва, 4")
}

func TestSearchDeterministic(t *testing.T) {
	eng := newEngine(t, RetrieverLevenshtein)
	idx := gazetteer()

	for _, q := range []string{"Дурова 4", "Дурова", "Ленина 10", "Варшавское шоссе 12а"} {
		a, err := eng.Search(idx, q, 5, "Москва")
		require.NoError(t, err)
		b, err := eng.Search(idx, q, 5, "Москва")
		require.NoError(t, err)

		ba, err := msgpack.Marshal(a)
		require.NoError(t, err)
		bb, err := msgpack.Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, ba, bb, q)
	}
}

func TestSearchBounds(t *testing.T) {
	faker := gofakeit.New(7)
	idx := gazetteer()

	for _, name := range []string{RetrieverLevenshtein, RetrieverToken, RetrieverVector} {
		eng := newEngine(t, name)
		for i := 0; i < 200; i++ {
			q := faker.Street()
			if i%3 == 0 {
				q = strings.Join([]string{"ул.", faker.LastName(), faker.Numerify("##")}, " ")
			}
			topN := faker.Number(0, 6)

			res, err := eng.Search(idx, q, topN, "Москва")
			if errors.Is(err, query.ErrInvalidQuery) {
				continue
			}
			require.NoError(t, err, q)
			assert.LessOrEqual(t, len(res.Objects), topN)
			for j, obj := range res.Objects {
				assert.GreaterOrEqual(t, obj.Score, 0.0)
				assert.LessOrEqual(t, obj.Score, 1.0)
				if j > 0 {
					assert.GreaterOrEqual(t, res.Objects[j-1].Score, obj.Score, "sorted descending")
				}
			}
		}
	}
}

func TestScoreMonotonicInDistance(t *testing.T) {
	base := "дурова"
	variants := []string{"дурова", "дурава", "дарава", "ларава", "лалава", "лалала"}

	for _, house := range []string{"", "4"} {
		prev := 2.0
		for _, v := range variants {
			s := Score(Ratio(base, v)/100, house, "4")
			assert.LessOrEqual(t, s, prev, "%q with house %q", v, house)
			prev = s
		}
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.8, Score(0.8, "", ""))
	assert.InDelta(t, 0.7*0.8+0.3, Score(0.8, "4", "4"), 1e-9)
	assert.InDelta(t, 0.7*0.8, Score(0.8, "4", ""), 1e-9)
	assert.Equal(t, 1.0, Score(1.5, "", ""))
	assert.Equal(t, 0.0, Score(-1, "", ""))

	assert.Equal(t, 1.0, HouseSimilarity("12а", "12А"))
	assert.Equal(t, 0.0, HouseSimilarity("4", ""))
	assert.InDelta(t, 0.5, HouseSimilarity("10", "12"), 1e-9)
}

func TestRank(t *testing.T) {
	idx := gazetteer()
	candidates := []MatchCandidate{
		{Pos: 3, FinalScore: 0.5},
		{Pos: 1, FinalScore: 0.9},
		{Pos: 0, FinalScore: 0.9},
		{Pos: 2, FinalScore: 0.7},
	}

	res := Rank(idx, candidates, 3, "Москва", "q")
	require.Len(t, res.Objects, 3)
	assert.Equal(t, []string{"4", "6", "4"}, []string{res.Objects[0].Number, res.Objects[1].Number, res.Objects[2].Number})
	assert.Equal(t, "Дурасовский пер.", res.Objects[2].Street)
	assert.Equal(t, int64(1), res.Objects[0].ID)
	assert.Equal(t, 3, candidates[0].Pos, "input is not reordered")

	assert.Empty(t, Rank(idx, candidates, 0, "Москва", "q").Objects)
}

func TestSearchLongStreet(t *testing.T) {
	// one street with more houses than the candidate limit
	records := make([]index.Record, 0, 121)
	for i := 1; i <= 120; i++ {
		records = append(records, index.Record{ID: int64(i), Street: "улица Дурова", House: strconv.Itoa(i)})
	}
	records = append(records, index.Record{ID: 121, Street: "Дурасовский пер.", House: "77"})
	idx := index.Build(records, nil)

	for _, name := range []string{RetrieverLevenshtein, RetrieverToken, RetrieverVector} {
		t.Run(name, func(t *testing.T) {
			for _, house := range []string{"1", "50", "51", "77", "120"} {
				res, err := newEngine(t, name).Search(idx, "Дурова "+house, 3, "Москва")
				require.NoError(t, err)
				require.NotEmpty(t, res.Objects, house)
				assert.Equal(t, house, res.Objects[0].Number)
				assert.Equal(t, "улица Дурова", res.Objects[0].Street)
			}
		})
	}
}
