package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"

	"earnLedger/internal/model"
)

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10_000
	// MaxFeeBps caps the fee rate of any asset at 10%.
	MaxFeeBps = 1_000

	DefaultEarnCutBps    = 1_000
	DefaultCreatorCutBps = 2_000
	DefaultBuybackCutBps = 3_500
	DefaultStakingCutBps = 3_500
)

// Split is a fee broken into its four buckets. The buckets always sum to Total.
type Split struct {
	Total   uint64 `json:"total"`
	Earn    uint64 `json:"earn"`
	Creator uint64 `json:"creator"`
	Buyback uint64 `json:"buyback"`
	Staking uint64 `json:"staking"`
}

// IsZero reports whether the fee rounded down to nothing.
func (s Split) IsZero() bool { return s.Total == 0 }

// DefaultConfig returns the registration defaults for a fee rate.
func DefaultConfig(feeBps uint16) model.FeeConfig {
	return model.FeeConfig{
		FeeBps:        feeBps,
		EarnCutBps:    DefaultEarnCutBps,
		CreatorCutBps: DefaultCreatorCutBps,
		BuybackCutBps: DefaultBuybackCutBps,
		StakingCutBps: DefaultStakingCutBps,
	}
}

// Validate checks the fee rate cap and that the cuts cover exactly 100%.
func Validate(cfg model.FeeConfig) error {
	if cfg.FeeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d bps exceeds %d", model.ErrFeeTooHigh, cfg.FeeBps, MaxFeeBps)
	}
	sum := uint32(cfg.EarnCutBps) + uint32(cfg.CreatorCutBps) + uint32(cfg.BuybackCutBps) + uint32(cfg.StakingCutBps)
	if sum != BpsDenominator {
		return fmt.Errorf("%w: got %d", model.ErrInvalidFeeSplits, sum)
	}
	return nil
}

// Compute splits the fee owed on tradeAmount for an asset.
// The staking bucket takes whatever the three floored cuts leave behind.
// A fee that floors to zero yields an empty Split and no error.
func Compute(tradeAmount uint64, asset model.Asset) (Split, error) {
	if !asset.Active {
		return Split{}, model.ErrTokenNotActive
	}
	if tradeAmount == 0 {
		return Split{}, model.ErrInvalidAmount
	}

	total, err := applyBps(tradeAmount, asset.Fees.FeeBps)
	if err != nil {
		return Split{}, err
	}
	if total == 0 {
		return Split{}, nil
	}
	return SplitFee(total, asset.Fees)
}

// SplitFee divides an already computed fee across the buckets of cfg.
func SplitFee(total uint64, cfg model.FeeConfig) (Split, error) {
	earn, err := applyBps(total, cfg.EarnCutBps)
	if err != nil {
		return Split{}, err
	}
	creator, err := applyBps(total, cfg.CreatorCutBps)
	if err != nil {
		return Split{}, err
	}
	buyback, err := applyBps(total, cfg.BuybackCutBps)
	if err != nil {
		return Split{}, err
	}

	staking := total
	for _, taken := range []uint64{earn, creator, buyback} {
		var underflow bool
		staking, underflow = math.SafeSub(staking, taken)
		if underflow {
			return Split{}, fmt.Errorf("%w: cuts exceed fee %d", model.ErrOverflow, total)
		}
	}

	return Split{
		Total:   total,
		Earn:    earn,
		Creator: creator,
		Buyback: buyback,
		Staking: staking,
	}, nil
}

func applyBps(amount uint64, bps uint16) (uint64, error) {
	product, overflow := math.SafeMul(amount, uint64(bps))
	if overflow {
		return 0, fmt.Errorf("%w: %d * %d bps", model.ErrOverflow, amount, bps)
	}
	return product / BpsDenominator, nil
}
