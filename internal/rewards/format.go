package rewards

import (
	"math/big"

	"github.com/holiman/uint256"
)

const scaleDecimals = 18

// FormatScaled renders a 1e18-scaled value as a decimal string.
func FormatScaled(value *uint256.Int) string {
	if value == nil || value.IsZero() {
		return "0"
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(scaleDecimals), nil)
	rat := new(big.Rat).SetFrac(value.ToBig(), denom)
	return rat.FloatString(scaleDecimals)
}
