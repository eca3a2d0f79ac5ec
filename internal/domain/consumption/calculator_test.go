package consumption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
	"roastledger/internal/domain/recipes"
)

func TestGreenRequired(t *testing.T) {
	calc := NewCalculator(1.2)

	assert.Equal(t, "1.200", calc.GreenRequired(types.NewQuantityFromFloat64(1)).String())
	assert.Equal(t, "6.000", calc.GreenRequired(types.NewQuantityFromFloat64(5)).String())
	assert.Equal(t, "0.300", calc.GreenRequired(types.NewQuantityFromFloat64(0.25)).String())
}

func TestRequired_SeventyThirty(t *testing.T) {
	calc := NewCalculator(1.2)
	lines := []recipes.Line{
		{Bean: bean.New("Ethiopia", "Yirgacheffe G1"), RatioPct: 70},
		{Bean: bean.New("Colombia", "Huila Supremo"), RatioPct: 30},
	}

	reqs := calc.Required(types.NewQuantityFromFloat64(1), lines)
	require.Len(t, reqs, 2)

	// 1 kg roasted -> 1.2 kg green -> 0.840 / 0.360
	assert.Equal(t, "0.840", reqs[0].RequiredKg.String())
	assert.Equal(t, "0.360", reqs[1].RequiredKg.String())
}

func TestRequired_RoundsEachLine(t *testing.T) {
	calc := NewCalculator(1.2)
	lines := []recipes.Line{
		{Bean: bean.New("A", "1"), RatioPct: 33.3},
		{Bean: bean.New("B", "2"), RatioPct: 33.3},
		{Bean: bean.New("C", "3"), RatioPct: 33.4},
	}

	reqs := calc.Required(types.NewQuantityFromFloat64(1), lines)
	require.Len(t, reqs, 3)

	// green = 1.200; each line rounded independently.
	assert.Equal(t, "0.400", reqs[0].RequiredKg.String())
	assert.Equal(t, "0.400", reqs[1].RequiredKg.String())
	assert.Equal(t, "0.401", reqs[2].RequiredKg.String())
}

func TestNewCalculator_DefaultRate(t *testing.T) {
	assert.Equal(t, DefaultLossRate, NewCalculator(0).LossRate())
	assert.Equal(t, DefaultLossRate, NewCalculator(-3).LossRate())
	assert.Equal(t, 1.25, NewCalculator(1.25).LossRate())
}
