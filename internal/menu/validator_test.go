package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blink/internal/catalog"
	"blink/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]domain.MenuItem{
		{Name: "Cheeseburger", Aliases: []string{"cheese burger"}, Price: 8.5, Category: "Burgers"},
		{Name: "Burger", Aliases: []string{"hamburger"}, Price: 7.5, Category: "Burgers"},
		{Name: "Chicken Burger", Price: 8, Category: "Burgers"},
		{Name: "Veggie Burger", Aliases: []string{"vegetarian burger"}, Price: 8.25, Category: "Burgers"},
		{Name: "Chicken Wings", Aliases: []string{"wings"}, Price: 9, Category: "Sides"},
		{Name: "French Fries", Aliases: []string{"fries"}, Price: 3.25, Category: "Sides"},
		{Name: "Cola", Aliases: []string{"coke", "soda"}, Price: 2, Category: "Drinks"},
	})
	require.NoError(t, err)
	return c
}

func TestValidateExactAliasMatches(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"fries"})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "French Fries", res.Matched[0].Item.Name)
	assert.Equal(t, 1, res.Matched[0].Quantity)
	assert.True(t, res.Clean())
	assert.NoError(t, res.Err())
}

func TestValidateMergesDuplicates(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"burger", "burger"})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "Burger", res.Matched[0].Item.Name)
	assert.Equal(t, 2, res.Matched[0].Quantity)
}

func TestValidateZeroOverlapIsUnmatched(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"zzznotfood"})

	assert.Empty(t, res.Matched)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "zzznotfood", res.Unmatched[0].Mention)
	assert.Empty(t, res.Unmatched[0].Candidates)
	assert.ErrorIs(t, res.Err(), domain.ErrValidationUnmatched)
}

func TestValidateAmbiguousMention(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"chicken"})

	assert.Empty(t, res.Matched)
	require.Len(t, res.Ambiguous, 1)
	names := []string{}
	for _, c := range res.Ambiguous[0].Candidates {
		names = append(names, c.Item.Name)
	}
	assert.ElementsMatch(t, []string{"Chicken Burger", "Chicken Wings"}, names)
	assert.ErrorIs(t, res.Err(), domain.ErrValidationAmbiguous)
}

func TestValidateSharedAliasIsAmbiguous(t *testing.T) {
	c, err := catalog.New([]domain.MenuItem{
		{Name: "Lunch Box", Aliases: []string{"special"}},
		{Name: "Dinner Box", Aliases: []string{"special"}},
	})
	require.NoError(t, err)

	res := NewValidator(c, DefaultConfig()).Validate([]string{"the special"})

	require.Len(t, res.Ambiguous, 1)
	assert.Len(t, res.Ambiguous[0].Candidates, 2)
}

func TestValidateMisspellingAndQuantity(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"two cheesburgers", "a couple of cokes", "-3 wings"})

	require.Len(t, res.Matched, 3)
	assert.Equal(t, "Cheeseburger", res.Matched[0].Item.Name)
	assert.Equal(t, 2, res.Matched[0].Quantity)
	assert.Equal(t, "Cola", res.Matched[1].Item.Name)
	assert.Equal(t, 2, res.Matched[1].Quantity)
	assert.Equal(t, "Chicken Wings", res.Matched[2].Item.Name)
	assert.Equal(t, 1, res.Matched[2].Quantity, "negative quantities clamp to 1")
}

func TestValidateUnmatchedSuggestions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 0.95
	v := NewValidator(testCatalog(t), cfg)

	res := v.Validate([]string{"cheesburger"})

	require.Len(t, res.Unmatched, 1)
	require.NotEmpty(t, res.Unmatched[0].Candidates)
	assert.Equal(t, "Cheeseburger", res.Unmatched[0].Candidates[0].Item.Name)
	assert.LessOrEqual(t, len(res.Unmatched[0].Candidates), cfg.MaxCandidates)
}

func TestValidateEmptyInput(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate(nil)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Unmatched)
	assert.Empty(t, res.Ambiguous)

	res = v.Validate([]string{"   "})
	assert.True(t, res.Clean())
}

func TestValidateQuantityOnlyMentionIsUnmatched(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"two"})

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, 2, res.Unmatched[0].Quantity)
}

func TestValidateTypoOfLongerNameBeatsNestedName(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"two chiken burgers please", "vege burger"})

	require.True(t, res.Clean())
	require.Len(t, res.Matched, 2)
	assert.Equal(t, "Chicken Burger", res.Matched[0].Item.Name)
	assert.Equal(t, 2, res.Matched[0].Quantity)
	assert.Equal(t, "Veggie Burger", res.Matched[1].Item.Name)
	assert.Equal(t, 1, res.Matched[1].Quantity)
}

func TestValidateExtraWordsDoNotCommitNestedName(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"spicy chiken burger"})

	for _, m := range res.Matched {
		assert.NotEqual(t, "Burger", m.Item.Name)
	}
	require.Len(t, res.Ambiguous, 1)
	names := []string{}
	for _, c := range res.Ambiguous[0].Candidates {
		names = append(names, c.Item.Name)
	}
	assert.Contains(t, names, "Chicken Burger")
}

func TestValidateContainmentStillResolvesExtraWords(t *testing.T) {
	v := NewValidator(testCatalog(t), DefaultConfig())

	res := v.Validate([]string{"large coke"})

	require.Len(t, res.Matched, 1)
	assert.Equal(t, "Cola", res.Matched[0].Item.Name)
}
