package export

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClickHouseConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClickHouseConfig
		wantErr bool
	}{
		{"valid", ClickHouseConfig{Addr: "localhost:9000", Table: "viti_records"}, false},
		{"missing addr", ClickHouseConfig{Table: "viti_records"}, true},
		{"injected table", ClickHouseConfig{Addr: "localhost:9000", Table: "records; DROP TABLE x"}, true},
		{"empty table", ClickHouseConfig{Addr: "localhost:9000"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWarehouseRows(t *testing.T) {
	rows, err := warehouseRows(sampleTable(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "exportacao", rows[0].Category)
	assert.Equal(t, "chile", rows[0].Entity)
	assert.Equal(t, "espumantes", rows[0].Tipo)
	assert.Empty(t, rows[0].Caracteristica)
	assert.Equal(t, uint16(2021), rows[0].Ano)
	require.NotNil(t, rows[0].Value)
	assert.Equal(t, "2500.5", rows[0].Value.String())

	assert.Nil(t, rows[1].Value)
	require.NotNil(t, rows[1].Quantity)
	assert.Equal(t, "7", rows[1].Quantity.String())
}

func TestWarehouseRowsRejectsBadYear(t *testing.T) {
	table := sampleTable(t)
	table.Records[1].Year = "20x1"
	_, err := warehouseRows(table)
	assert.ErrorContains(t, err, "invalid year")
}

func TestCreateTableSQL(t *testing.T) {
	ddl := createTableSQL("viti_records")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS viti_records")
	assert.Contains(t, ddl, "ORDER BY (category, ano, entity)")
}

func TestReplaceTableRejectsEmpty(t *testing.T) {
	table := sampleTable(t)
	table.Records = nil

	var s ClickHouseSink
	_, err := s.ReplaceTable(context.Background(), table)
	assert.ErrorContains(t, err, "empty table")
}

func TestOpenClickHouseValidates(t *testing.T) {
	_, err := OpenClickHouse(context.Background(), ClickHouseConfig{Table: "viti_records"})
	assert.Error(t, err)

	_, err = OpenClickHouse(context.Background(), ClickHouseConfig{Addr: "localhost:9000", Table: "bad-name"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
