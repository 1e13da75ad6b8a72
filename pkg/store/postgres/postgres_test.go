package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return New(mock, "Москва"), mock
}

func TestRecords(t *testing.T) {
	s, mock := newMock(t)

	rows := pgxmock.NewRows(columns).
		AddRow(int64(1), int64(2417733412), "Москва", "улица Дурова", "4", "", "", 37.6, 55.7).
		AddRow(int64(2), int64(0), "", "ул. Ленина", "10", "2", "", 37.5, 55.8)
	mock.ExpectQuery(`SELECT id, node_id, localy, street, number, building, structure, lon, lat FROM address ORDER BY id ASC`).
		WillReturnRows(rows)

	records, err := s.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []index.Record{
		{ID: 1, NodeID: 2417733412, Locality: "Москва", Street: "улица Дурова", House: "4", Lon: 37.6, Lat: 55.7},
		{ID: 2, Locality: "Москва", Street: "ул. Ленина", House: "10", Building: "2", Lon: 37.5, Lat: 55.8},
	}, records)
}

func TestRecordsQueryError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT`).WillReturnError(boom)

	_, err := s.Records(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		addr    store.NewAddress
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
		wantID  int64
	}{
		{
			name: "inserted",
			addr: store.NewAddress{Street: "улица Дурова", House: "4", Lon: 37.6, Lat: 55.7},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO address \(node_id,localy,street,number,building,structure,lon,lat\) VALUES .+ RETURNING id`).
					WithArgs(int64(0), "Москва", "улица Дурова", "4", "", "", 37.6, 55.7).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
			},
			wantID: 42,
		},
		{
			name:    "invalid address never reaches the database",
			addr:    store.NewAddress{Street: "улица Дурова"},
			setup:   func(mock pgxmock.PgxPoolIface) {},
			wantErr: store.ErrInvalidRecord,
		},
		{
			name: "check violation",
			addr: store.NewAddress{Street: "улица Дурова", House: "4"},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO address`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "23514", Message: "lat out of range"})
			},
			wantErr: store.ErrInvalidRecord,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMock(t)
			tc.setup(mock)

			rec, err := s.Create(context.Background(), tc.addr)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, rec.ID)
			assert.Equal(t, "Москва", rec.Locality)
			assert.Equal(t, tc.addr.Street, rec.Street)
		})
	}
}
