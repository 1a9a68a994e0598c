package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeTable(t *testing.T) {
	table := NewFeeTable([]Zone{
		{Region: "الرياض", Fee: 15, IsActive: true},
		{Region: "Jeddah", Fee: 25, IsActive: true},
		{Region: "Abha", Fee: 40, IsActive: false},
	})

	fee, ok := table.Lookup(" الرياض ")
	assert.True(t, ok)
	assert.Equal(t, 15.0, fee)

	fee, ok = table.Lookup("JEDDAH")
	assert.True(t, ok)
	assert.Equal(t, 25.0, fee)

	_, ok = table.Lookup("Abha")
	assert.False(t, ok)

	_, ok = table.Lookup("Dammam")
	assert.False(t, ok)
}
