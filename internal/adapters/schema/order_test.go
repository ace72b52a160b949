package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

func TestDecodeLineItemsPerUnitArray(t *testing.T) {
	payload := `[{"id":1,"name":"Tea"},{"id":2,"name":"Coffee"},{"id":1,"name":"Tea","note":"strong"}]`
	got, err := DecodeLineItems([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{
		{ItemID: 1, Quantity: 2, Note: "strong"},
		{ItemID: 2, Quantity: 1},
	}, got)
}

func TestDecodeLineItemsQuantityField(t *testing.T) {
	payload := `[{"itemId":4,"quantity":3},{"itemId":5,"qty":1,"note":"no onion"},{"itemId":6,"quantity":0}]`
	got, err := DecodeLineItems([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{
		{ItemID: 4, Quantity: 3},
		{ItemID: 5, Quantity: 1, Note: "no onion"},
	}, got)
}

func TestDecodeLineItemsMixedShapesAgree(t *testing.T) {
	units, err := DecodeLineItems([]byte(`[{"id":7},{"id":7},{"id":7}]`))
	require.NoError(t, err)
	counted, err := DecodeLineItems([]byte(`[{"itemId":7,"quantity":3}]`))
	require.NoError(t, err)
	assert.Equal(t, counted, units)
}

func TestDecodeLineItemsRejects(t *testing.T) {
	for _, payload := range []string{`{}`, `[{"name":"Tea"}]`, `[{"itemId":1,"quantity":-2}]`} {
		_, err := DecodeLineItems([]byte(payload))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, payload)
	}
}

func TestDecodeLineItemsUnitLimit(t *testing.T) {
	items, err := DecodeLineItems([]byte(`[{"itemId":1,"quantity":200}]`))
	require.NoError(t, err)
	assert.Equal(t, domain.MaxUnitsPerLine, items[0].Quantity)

	for _, payload := range []string{
		`[{"itemId":1,"quantity":201}]`,
		`[{"itemId":1,"qty":1099511627776}]`,
		`[{"itemId":1,"quantity":200},{"id":1,"name":"Tea"}]`,
		`[{"itemId":1,"quantity":100},{"itemId":1,"quantity":101}]`,
	} {
		_, err := DecodeLineItems([]byte(payload))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, payload)
	}
}

func TestDecodeKitchenOrder(t *testing.T) {
	payload := `{
		"source_id": "table:5",
		"round": 1,
		"created_at": "2024-05-17T12:00:00Z",
		"items": [
			{"item_id": 9, "name": ["Biryani"], "quantity": 2, "note": "less spicy"},
			{"item_id": 1, "name": "Tea"},
			{"item_id": 1, "name": "Tea"}
		]
	}`
	msg, err := DecodeKitchenOrder([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "Table 5", msg.SourceLabel)
	assert.Equal(t, []domain.KitchenOrderItem{
		{ItemID: 9, Name: "Biryani", Quantity: 2, Note: "less spicy"},
		{ItemID: 1, Name: "Tea", Quantity: 2},
	}, msg.Items)
}

func TestDecodeKitchenOrderRejects(t *testing.T) {
	tests := map[string]string{
		"garbage":            `nope`,
		"no source":          `{"items":[{"item_id":1,"name":"Tea"}]}`,
		"no items":           `{"source_id":"table:1","items":[]}`,
		"empty names":        `{"source_id":"table:1","items":[{"item_id":1,"name":[]}]}`,
		"negative":           `{"source_id":"table:1","items":[{"item_id":1,"name":"Tea","quantity":-1}]}`,
		"huge":               `{"source_id":"table:1","items":[{"item_id":1,"name":"Tea","quantity":1099511627776}]}`,
		"above limit":        `{"source_id":"table:1","items":[{"item_id":1,"name":"Tea","quantity":201}]}`,
		"merged above limit": `{"source_id":"table:1","items":[{"item_id":1,"name":"Tea","quantity":200},{"item_id":1,"name":"Tea"}]}`,
		"merged overflow":    `{"source_id":"table:1","items":[{"item_id":1,"name":"Tea","quantity":150},{"item_id":1,"name":"Tea","quantity":9223372036854775807}]}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeKitchenOrder([]byte(payload))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
