package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

type menuStub map[int]domain.MenuItem

func (m menuStub) Lookup(id int) (domain.MenuItem, error) {
	it, ok := m[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrItemNotFound
	}
	return it, nil
}

func testMenu() menuStub {
	return menuStub{
		1: {ID: 1, Name: "Tea", Category: "Beverages", UnitPrice: decimal.NewFromInt(120), IsAvailable: true},
		2: {ID: 2, Name: "Coffee", Category: "Beverages", UnitPrice: decimal.NewFromInt(150), IsAvailable: true},
		3: {ID: 3, Name: "Lassi", Category: "Beverages", UnitPrice: decimal.NewFromInt(90), IsAvailable: false},
	}
}

func TestAddItemAggregatesQuantity(t *testing.T) {
	c := New(domain.TableSource("4"))
	menu := testMenu()

	require.NoError(t, c.AddItem(menu, 1))
	require.NoError(t, c.AddItem(menu, 2))
	require.NoError(t, c.AddItem(menu, 1))

	assert.Equal(t, []domain.LineItem{
		{ItemID: 1, Quantity: 2},
		{ItemID: 2, Quantity: 1},
	}, c.Lines())
	assert.Equal(t, 3, c.TotalLineCount())
	assert.False(t, c.IsEmpty())
}

func TestAddItemRejectsUnknownAndUnavailable(t *testing.T) {
	c := New(domain.TableSource("1"))
	menu := testMenu()
	require.NoError(t, c.AddItem(menu, 1))
	before := c.Snapshot()

	assert.ErrorIs(t, c.AddItem(menu, 99), domain.ErrItemNotFound)
	assert.ErrorIs(t, c.AddItem(menu, 3), domain.ErrItemNotFound)
	assert.Equal(t, before, c.Snapshot())
}

func TestDecrementAndRemove(t *testing.T) {
	c := New(domain.ParcelSource("7"))
	menu := testMenu()
	require.NoError(t, c.AddItem(menu, 1))
	require.NoError(t, c.AddItem(menu, 1))
	require.NoError(t, c.AddItem(menu, 2))

	require.NoError(t, c.DecrementItem(1))
	assert.Equal(t, 2, c.TotalLineCount())

	require.NoError(t, c.DecrementItem(1))
	assert.Equal(t, []domain.LineItem{{ItemID: 2, Quantity: 1}}, c.Lines())

	require.NoError(t, c.DecrementItem(42), "absent item is a no-op")

	require.NoError(t, c.RemoveItem(2))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.TotalLineCount())
}

func TestTotalLineCountMatchesOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	menu := testMenu()
	for run := 0; run < 50; run++ {
		c := New(domain.TableSource("T"))
		held := map[int]int{}
		adds, decs := 0, 0
		for step := 0; step < 40; step++ {
			id := 1 + rng.Intn(2)
			if rng.Intn(3) == 0 {
				require.NoError(t, c.DecrementItem(id))
				if held[id] > 0 {
					held[id]--
					decs++
				}
				continue
			}
			require.NoError(t, c.AddItem(menu, id))
			held[id]++
			adds++
		}
		assert.Equal(t, adds-decs, c.TotalLineCount())
		for _, l := range c.Lines() {
			assert.GreaterOrEqual(t, l.Quantity, 1)
		}
	}
}

func TestLifecycle(t *testing.T) {
	c := New(domain.TableSource("2"))
	menu := testMenu()

	_, err := c.Submit()
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, domain.StateOrdering, c.State())

	require.NoError(t, c.AddItem(menu, 1))
	round, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{{ItemID: 1, Quantity: 1}}, round)
	assert.Equal(t, domain.StateSentToKitchen, c.State())
	assert.False(t, c.HasPendingRound())

	// A second round before the first is ready.
	require.NoError(t, c.AddItem(menu, 1))
	_, err = c.Submit()
	require.NoError(t, err)
	assert.Equal(t, 2, c.InKitchen())
	assert.Equal(t, []int{1, 2}, c.PendingRounds())

	require.NoError(t, c.MarkReady(2))
	assert.Equal(t, domain.StateSentToKitchen, c.State())
	assert.ErrorIs(t, c.MarkReady(2), domain.ErrInvalidState, "a repeated signal is not counted twice")
	assert.Equal(t, domain.StateSentToKitchen, c.State())
	require.NoError(t, c.MarkReady(1))
	assert.Equal(t, domain.StateReadyForCheckout, c.State())
	assert.ErrorIs(t, c.MarkReady(1), domain.ErrInvalidState)

	assert.Equal(t, []domain.LineItem{{ItemID: 1, Quantity: 1}, {ItemID: 1, Quantity: 1}}, c.Lines())

	require.NoError(t, c.MarkBilled())
	assert.ErrorIs(t, c.AddItem(menu, 2), domain.ErrInvalidState)
	assert.ErrorIs(t, c.DecrementItem(1), domain.ErrInvalidState)
	assert.ErrorIs(t, c.RemoveItem(1), domain.ErrInvalidState)
	_, err = c.Submit()
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.ErrorIs(t, c.MarkBilled(), domain.ErrInvalidState)

	c.Clear()
	assert.Equal(t, domain.StateOrdering, c.State())
	assert.True(t, c.IsEmpty())
}

func TestMarkReadyNeedsKitchenRound(t *testing.T) {
	c := New(domain.TableSource("9"))
	assert.ErrorIs(t, c.MarkReady(1), domain.ErrInvalidState)

	require.NoError(t, c.AddItem(testMenu(), 1))
	_, err := c.Submit()
	require.NoError(t, err)
	assert.ErrorIs(t, c.MarkReady(3), domain.ErrInvalidState, "unknown round")
	assert.Equal(t, 1, c.InKitchen())
}

func TestAddItemStopsAtUnitLimit(t *testing.T) {
	c := New(domain.TableSource("5"))
	menu := testMenu()
	for i := 0; i < domain.MaxUnitsPerLine; i++ {
		require.NoError(t, c.AddItem(menu, 1))
	}
	assert.ErrorIs(t, c.AddItem(menu, 1), domain.ErrInvalidInput)
	assert.Equal(t, domain.MaxUnitsPerLine, c.TotalLineCount())
}

func TestSetNote(t *testing.T) {
	c := New(domain.TableSource("3"))
	require.NoError(t, c.AddItem(testMenu(), 2))
	require.NoError(t, c.SetNote(2, "no sugar"))
	assert.Equal(t, "no sugar", c.Current()[0].Note)
	assert.ErrorIs(t, c.SetNote(1, "x"), domain.ErrItemNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New(domain.ParcelSource("12"))
	menu := testMenu()
	require.NoError(t, c.AddItem(menu, 1))
	_, err := c.Submit()
	require.NoError(t, err)
	require.NoError(t, c.AddItem(menu, 2))

	restored, err := Restore(c.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, c.Snapshot(), restored.Snapshot())
	assert.Equal(t, c.Lines(), restored.Lines())
}

func TestRestoreRejectsBrokenSnapshots(t *testing.T) {
	good := Snapshot{Source: domain.TableSource("1"), State: domain.StateOrdering}
	tests := []struct {
		name string
		mut  func(s *Snapshot)
	}{
		{"zero quantity", func(s *Snapshot) { s.Current = []domain.LineItem{{ItemID: 1, Quantity: 0}} }},
		{"duplicate current line", func(s *Snapshot) {
			s.Current = []domain.LineItem{{ItemID: 1, Quantity: 1}, {ItemID: 1, Quantity: 2}}
		}},
		{"unknown state", func(s *Snapshot) { s.State = "cooking" }},
		{"bad source", func(s *Snapshot) { s.Source = domain.Source{Kind: "booth", Ref: "1"} }},
		{"pending round above rounds", func(s *Snapshot) { s.Pending = []int{1} }},
		{"duplicate pending round", func(s *Snapshot) { s.Rounds = 2; s.Pending = []int{1, 1} }},
		{"quantity above limit", func(s *Snapshot) {
			s.Current = []domain.LineItem{{ItemID: 1, Quantity: domain.MaxUnitsPerLine + 1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good
			tt.mut(&s)
			_, err := Restore(s)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
