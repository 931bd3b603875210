package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "大小写与空白", input: "  Human   LUNG atlas ", want: "human lung atlas"},
		{name: "重音符号", input: "Café Résumé", want: "cafe resume"},
		{name: "标点", input: "Lung: a cell atlas.", want: "lung a cell atlas"},
		{name: "连字符保留", input: "single-cell", want: "single-cell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestCompareTitles(t *testing.T) {
	assert.Equal(t, TitleExactMatch, CompareTitles("Foo", "  foo ", 0.9))
	assert.Equal(t, TitleMismatch, CompareTitles("Foo", "Foo Updated", 0.9))
	assert.Equal(t, TitleNearMatch, CompareTitles("An atlas of the human lung", "An atlas of the human lungs", 0.9))
	assert.InDelta(t, 1.0, Similarity("", ""), 0.0001)
}

func TestSetDifference(t *testing.T) {
	missing, extra := SetDifference([]string{"lung", "Gut", "heart"}, []string{"LUNG", "eye", "eye"})
	assert.Equal(t, []string{"Gut", "heart"}, missing)
	assert.Equal(t, []string{"eye"}, extra)

	missing, extra = SetDifference(nil, nil)
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}
