package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PageRange
		ok    bool
	}{
		{name: "simple", input: "Doe2020 pages 3-4", want: PageRange{Start: 3, End: 4}, ok: true},
		{name: "single page", input: "Smith1999 pages 7-7", want: PageRange{Start: 7, End: 7}, ok: true},
		{name: "no pages", input: "Doe2020", ok: false},
		{name: "malformed", input: "Doe2020 pages three-four", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePageRange(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageRange_List(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, PageRange{Start: 3, End: 5}.List())
	assert.Equal(t, []int{}, PageRange{}.List())
	assert.Equal(t, []int{}, PageRange{Start: 5, End: 3}.List())
	assert.Equal(t, "3-5", PageRange{Start: 3, End: 5}.String())
}

func TestDocNameFromCitation(t *testing.T) {
	name, err := DocNameFromCitation("Doe, J. (2020). A study of things. Journal 4(2).")
	require.NoError(t, err)
	assert.Equal(t, "Doe2020", name)

	name, err = DocNameFromCitation("Ministry of Health guidance, undated")
	require.NoError(t, err)
	assert.Equal(t, "Ministry", name)

	_, err = DocNameFromCitation("1234 5678")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPassageName(t *testing.T) {
	assert.Equal(t, "Doe2020 pages 3-4", PassageName("Doe2020", PageRange{Start: 3, End: 4}))
	assert.Equal(t, "Doe2020", PassageName("Doe2020", PageRange{}))
}

func TestContext_UngroundedQuotes(t *testing.T) {
	c := Context{
		Passage: Passage{Name: "Doe2020 pages 1-2", Text: "The sky is blue because of Rayleigh scattering."},
		Points: []Point{
			{Quote: "Rayleigh scattering", Point: "cause"},
			{Quote: "The sky is blue...", Point: "truncated"},
		},
	}

	assert.Equal(t, "Doe2020 pages 1-2", c.Name())
	assert.Equal(t, []string{"The sky is blue..."}, c.UngroundedQuotes())
}
