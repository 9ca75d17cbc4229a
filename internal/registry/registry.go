package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"earnLedger/internal/fees"
	"earnLedger/internal/model"
)

// Registration describes a new asset. Nil cut overrides keep the defaults;
// the protocol cut is fixed.
type Registration struct {
	Mint          common.Address
	Creator       common.Address
	FeeBps        uint16
	CreatorCutBps *uint16
	BuybackCutBps *uint16
	StakingCutBps *uint16
}

// FeeConfig resolves the overrides against the defaults.
func (r Registration) FeeConfig() model.FeeConfig {
	cfg := fees.DefaultConfig(r.FeeBps)
	if r.CreatorCutBps != nil {
		cfg.CreatorCutBps = *r.CreatorCutBps
	}
	if r.BuybackCutBps != nil {
		cfg.BuybackCutBps = *r.BuybackCutBps
	}
	if r.StakingCutBps != nil {
		cfg.StakingCutBps = *r.StakingCutBps
	}
	return cfg
}

// NewMaster builds the singleton aggregate.
func NewMaster(authority, earnWallet common.Address, now int64) (model.Master, error) {
	if authority == (common.Address{}) {
		return model.Master{}, fmt.Errorf("%w: authority is required", model.ErrUnauthorized)
	}
	if earnWallet == (common.Address{}) {
		earnWallet = authority
	}
	return model.Master{
		Authority:  authority,
		EarnWallet: earnWallet,
		CreatedAt:  now,
	}, nil
}

// NewAsset validates a registration and builds its registry entry.
func NewAsset(reg Registration, now int64) (model.Asset, error) {
	if reg.Mint == (common.Address{}) {
		return model.Asset{}, model.ErrInvalidTokenMint
	}
	cfg := reg.FeeConfig()
	if err := fees.Validate(cfg); err != nil {
		return model.Asset{}, err
	}
	creator := reg.Creator
	if creator == (common.Address{}) {
		return model.Asset{}, fmt.Errorf("%w: creator is required", model.ErrUnauthorized)
	}
	return model.Asset{
		Mint:      reg.Mint,
		Creator:   creator,
		Fees:      cfg,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// Authorize checks that signer is the deployment authority.
func Authorize(master model.Master, signer common.Address) error {
	if signer != master.Authority {
		return fmt.Errorf("%w: %s is not the authority", model.ErrUnauthorized, signer.Hex())
	}
	return nil
}

// RecordRegistration counts a newly registered asset.
func RecordRegistration(master *model.Master) error {
	return add(&master.TotalTokensRegistered, 1, "total tokens registered")
}

// RecordPool counts a newly created staking pool.
func RecordPool(master *model.Master) error {
	return add(&master.TotalPools, 1, "total pools")
}

// RecordFee updates the asset and deployment lifetime counters for a split.
func RecordFee(asset *model.Asset, master *model.Master, split fees.Split) error {
	updates := []struct {
		field *uint64
		delta uint64
		name  string
	}{
		{&asset.TotalFeesCollected, split.Total, "total fees collected"},
		{&asset.TotalEarnFees, split.Earn, "total earn fees"},
		{&asset.TotalCreatorFees, split.Creator, "total creator fees"},
		{&master.TotalFeesProcessed, split.Total, "total fees processed"},
		{&master.TotalSolCollected, split.Total, "total sol collected"},
	}
	// Check everything first so a failure leaves no counter half-updated.
	for _, u := range updates {
		if _, overflow := math.SafeAdd(*u.field, u.delta); overflow {
			return fmt.Errorf("%w: %s", model.ErrOverflow, u.name)
		}
	}
	for _, u := range updates {
		*u.field += u.delta
	}
	return nil
}

// AdjustStaked moves the deployment-wide staked total up or down by amount.
func AdjustStaked(master *model.Master, amount uint64, increase bool) error {
	if increase {
		return add(&master.TotalStakedValue, amount, "total staked value")
	}
	next, underflow := math.SafeSub(master.TotalStakedValue, amount)
	if underflow {
		return fmt.Errorf("%w: total staked value", model.ErrOverflow)
	}
	master.TotalStakedValue = next
	return nil
}

// RecordRewardsPaid counts rewards paid out to stakers.
func RecordRewardsPaid(master *model.Master, amount uint64) error {
	return add(&master.TotalRewardsDistributed, amount, "total rewards distributed")
}

func add(field *uint64, delta uint64, name string) error {
	next, overflow := math.SafeAdd(*field, delta)
	if overflow {
		return fmt.Errorf("%w: %s", model.ErrOverflow, name)
	}
	*field = next
	return nil
}
