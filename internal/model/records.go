package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeAsset identifies the chain's native unit in balance records.
var NativeAsset = common.Address{}

// Master is the deployment-wide aggregate. Exactly one exists once initialized.
type Master struct {
	Authority               common.Address `json:"authority"`
	EarnWallet              common.Address `json:"earn_wallet"`
	TotalTokensRegistered   uint64         `json:"total_tokens_registered"`
	TotalFeesProcessed      uint64         `json:"total_fees_processed"`
	TotalSolCollected       uint64         `json:"total_sol_collected"`
	TotalPools              uint64         `json:"total_pools"`
	TotalStakedValue        uint64         `json:"total_staked_value"`
	TotalRewardsDistributed uint64         `json:"total_rewards_distributed"`
	CreatedAt               int64          `json:"created_at"`
}

// FeeConfig holds the fee rate and how each fee is split, all in basis points.
type FeeConfig struct {
	FeeBps        uint16 `json:"fee_bps"`
	EarnCutBps    uint16 `json:"earn_cut_bps"`
	CreatorCutBps uint16 `json:"creator_cut_bps"`
	BuybackCutBps uint16 `json:"buyback_cut_bps"`
	StakingCutBps uint16 `json:"staking_cut_bps"`
}

// Asset is the per-mint registry entry.
type Asset struct {
	Mint               common.Address `json:"mint"`
	Creator            common.Address `json:"creator"`
	Fees               FeeConfig      `json:"fees"`
	Active             bool           `json:"active"`
	TotalFeesCollected uint64         `json:"total_fees_collected"`
	TotalEarnFees      uint64         `json:"total_earn_fees"`
	TotalCreatorFees   uint64         `json:"total_creator_fees"`
	CreatedAt          int64          `json:"created_at"`
}

// Treasury accumulates the buyback bucket of an asset.
type Treasury struct {
	Mint             common.Address `json:"mint"`
	Balance          uint64         `json:"balance"`
	BuybackThreshold uint64         `json:"buyback_threshold"`
	TotalBuybacks    uint64         `json:"total_buybacks"`
	TotalBurned      uint64         `json:"total_burned"`
	LastBuyback      int64          `json:"last_buyback"`
}

// Pool is the staking pool of a mint. RewardPerShare is scaled by rewards.Scale.
type Pool struct {
	Mint                    common.Address `json:"mint"`
	AgentWallet             common.Address `json:"agent_wallet"`
	TotalStaked             uint64         `json:"total_staked"`
	RewardPerShare          uint256.Int    `json:"-"`
	RewardsAvailable        uint64         `json:"rewards_available"`
	TotalRewardsDistributed uint64         `json:"total_rewards_distributed"`
	TotalRewardsPaid        uint64         `json:"total_rewards_paid"`
	StakerCount             uint64         `json:"staker_count"`
	MinStake                uint64         `json:"min_stake"`
	CooldownSeconds         uint64         `json:"cooldown_seconds"`
	Paused                  bool           `json:"paused"`
	LastUpdate              int64          `json:"last_update"`
	CreatedAt               int64          `json:"created_at"`
}

// StakeAccount is one owner's position in a pool.
type StakeAccount struct {
	Mint               common.Address `json:"mint"`
	Owner              common.Address `json:"owner"`
	StakedAmount       uint64         `json:"staked_amount"`
	RewardPerSharePaid uint256.Int    `json:"-"`
	AccruedRewards     uint64         `json:"accrued_rewards"`
	StakedAt           int64          `json:"staked_at"`
	LastClaimAt        int64          `json:"last_claim_at"`
	UnstakePending     bool           `json:"unstake_pending"`
	UnstakeRequestedAt int64          `json:"unstake_requested_at"`
	UnstakeAmount      uint64         `json:"unstake_amount"`
	Locked             bool           `json:"locked"`
}

// ClearUnstakeRequest drops any pending cooldown request.
func (a *StakeAccount) ClearUnstakeRequest() {
	a.UnstakePending = false
	a.UnstakeRequestedAt = 0
	a.UnstakeAmount = 0
}

// Balance is a holder's balance of one asset in the host ledger.
type Balance struct {
	Asset  common.Address `json:"asset"`
	Holder common.Address `json:"holder"`
	Amount uint64         `json:"amount"`
}
