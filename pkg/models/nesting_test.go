package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNestingRowPathKey(t *testing.T) {
	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	assert.Equal(t, "", NestingRow{}.PathKey())
	assert.Equal(t, a.String(), NestingRow{ViaOperatorPath: []uuid.UUID{a}}.PathKey())
	assert.Equal(t, a.String()+"/"+b.String(), NestingRow{ViaOperatorPath: []uuid.UUID{a, b}}.PathKey())
}

func TestSortNestingRowsIsStableAcrossInputOrder(t *testing.T) {
	wf := uuid.New()
	descA := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	descB := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	op1 := uuid.MustParse("11111111-0000-0000-0000-000000000000")
	op2 := uuid.MustParse("22222222-0000-0000-0000-000000000000")

	rows := []NestingRow{
		{WorkflowID: wf, DescendantID: descB, ViaOperatorPath: []uuid.UUID{op1}, Depth: 1},
		{WorkflowID: wf, DescendantID: descA, ViaOperatorPath: []uuid.UUID{op2, op1}, Depth: 2},
		{WorkflowID: wf, DescendantID: descA, ViaOperatorPath: []uuid.UUID{op1}, Depth: 1},
	}
	reversed := []NestingRow{rows[2], rows[1], rows[0]}

	SortNestingRows(rows)
	SortNestingRows(reversed)

	assert.Equal(t, rows, reversed)
	assert.Equal(t, descA, rows[0].DescendantID)
	assert.Equal(t, op1.String(), rows[0].PathKey())
	assert.Equal(t, descB, rows[2].DescendantID)
}
