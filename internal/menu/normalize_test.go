package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Cheese-Burgers!", want: "cheese burger"},
		{in: "  French   Fries ", want: "french fry"},
		{in: "glasses", want: "glass"},
		{in: "Boxes", want: "box"},
		{in: "sandwiches", want: "sandwich"},
		{in: "hummus", want: "hummus"},
		{in: "bus", want: "bus"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestSplitQuantity(t *testing.T) {
	tests := []struct {
		in       string
		wantQty  int
		wantItem string
	}{
		{in: "cheeseburger", wantQty: 1, wantItem: "cheeseburger"},
		{in: "two cheeseburgers", wantQty: 2, wantItem: "cheeseburger"},
		{in: "3 orders of fries", wantQty: 3, wantItem: "fry"},
		{in: "2x cola", wantQty: 2, wantItem: "cola"},
		{in: "a dozen wings", wantQty: 12, wantItem: "wing"},
		{in: "a couple of shakes", wantQty: 2, wantItem: "shake"},
		{in: "an onion ring", wantQty: 1, wantItem: "onion ring"},
		{in: "zero lemonades", wantQty: 1, wantItem: "lemonade"},
		{in: "-2 burgers", wantQty: 1, wantItem: "burger"},
		{in: "two chiken burgers please", wantQty: 2, wantItem: "chiken burger"},
		{in: "a coke too, thanks", wantQty: 1, wantItem: "coke"},
		{in: "", wantQty: 1, wantItem: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			qty, item := SplitQuantity(tt.in)
			assert.Equal(t, tt.wantQty, qty)
			assert.Equal(t, tt.wantItem, item)
		})
	}
}

func TestSimilarityIsMonotonic(t *testing.T) {
	exact := Similarity("burger", "burger")
	contained := Similarity("burger", "chicken burger")
	typo := Similarity("burgr", "burger")
	unrelated := Similarity("xyz", "burger")

	assert.Equal(t, 1.0, exact)
	assert.Greater(t, exact, contained)
	assert.Greater(t, contained, typo)
	assert.Greater(t, typo, unrelated)
	assert.Equal(t, 0.0, Similarity("", "burger"))

	assert.Greater(t, Similarity("vege burger", "veggie burger"), Similarity("vege burger", "burger"))
	assert.Greater(t, Similarity("chiken burger", "chicken burger"), Similarity("chiken burger", "burger"))
}
