package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories("owner-1")
	require.Len(t, cats, 9)

	income := map[string]bool{}
	for _, c := range cats {
		assert.True(t, c.IsDefault)
		assert.Equal(t, "owner-1", c.OwnerID)
		assert.Empty(t, c.ID)
		assert.NoError(t, c.Validate(), c.Name)
		if c.Kind == KindIncome {
			income[c.Name] = true
		}
	}
	assert.Equal(t, map[string]bool{"Salário": true, "Investimentos": true}, income)
	assert.Len(t, CategoriesForKind(cats, KindExpense), 7)
}

func TestDefaultCategorySeedsReturnsCopy(t *testing.T) {
	a := DefaultCategorySeeds()
	a[0].Name = "changed"
	b := DefaultCategorySeeds()
	assert.NotEqual(t, "changed", b[0].Name)
}

func TestLoadCategorySeeds(t *testing.T) {
	good := `
categories:
  - name: Pets
    color: "#123"
    kind: expense
  - name: Bonus
    color: "#00ff00"
    kind: income
`
	seeds, err := LoadCategorySeeds(strings.NewReader(good))
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, KindIncome, seeds[1].Kind)

	bad := `
categories:
  - name: Pets
    color: "blue"
    kind: expense
`
	_, err = LoadCategorySeeds(strings.NewReader(bad))
	assert.ErrorIs(t, err, ErrInvalidColor)
}
