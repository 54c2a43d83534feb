package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpecs = []FieldSpec{
	{Name: "court_level", Type: FieldEnum, Required: true, Enum: []string{"High Court", "District Court"}},
	{Name: "party_count", Type: FieldNumber, Required: true},
	{Name: "judgment_date", Type: FieldDate},
	{Name: "include_disbursements", Type: FieldBool},
	{Name: "notes", Type: FieldString},
}

func TestValidateFacts_Valid(t *testing.T) {
	facts := FactMap{
		"court_level":           "High Court",
		"party_count":           2,
		"judgment_date":         "2024-03-01",
		"include_disbursements": false,
		"notes":                 "served by post",
	}
	assert.NoError(t, ValidateFacts(testSpecs, facts))
}

func TestValidateFacts_MissingIsNotAnError(t *testing.T) {
	assert.NoError(t, ValidateFacts(testSpecs, FactMap{}))
}

func TestValidateFacts_ReportsEveryProblem(t *testing.T) {
	facts := FactMap{
		"court_level":   "Supreme Court",
		"party_count":   "two",
		"judgment_date": "01/03/2024",
		"colour":        "blue",
	}
	err := ValidateFacts(testSpecs, facts)
	require.Error(t, err)

	var fvErr *FactValidationError
	require.True(t, errors.As(err, &fvErr))
	require.Len(t, fvErr.Problems, 4)
	// sorted by field name
	assert.Contains(t, fvErr.Problems[0], "colour: unknown field")
	assert.Contains(t, fvErr.Problems[1], "court_level")
	assert.Contains(t, fvErr.Problems[2], "judgment_date")
	assert.Contains(t, fvErr.Problems[3], "party_count")
}

func TestFactMap_Accessors(t *testing.T) {
	facts := FactMap{"n": int64(3), "s": "x", "b": true}

	n, ok := facts.Number("n")
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	_, ok = facts.Number("s")
	assert.False(t, ok)

	s, ok := facts.String("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	b, ok := facts.Bool("b")
	assert.True(t, ok)
	assert.True(t, b)

	clone := facts.Clone()
	clone["n"] = 4
	assert.Equal(t, int64(3), facts["n"])
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"court_level", "party_count"}, RequiredFields(testSpecs))
}
