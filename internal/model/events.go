package model

import "github.com/ethereum/go-ethereum/common"

// EventKind names a ledger event.
type EventKind string

const (
	EventTokenRegistered   EventKind = "TokenRegistered"
	EventPoolCreated       EventKind = "PoolCreated"
	EventFeeCollected      EventKind = "FeeCollected"
	EventStaked            EventKind = "Staked"
	EventUnstakeRequested  EventKind = "UnstakeRequested"
	EventUnstakeCancelled  EventKind = "UnstakeCancelled"
	EventUnstaked          EventKind = "Unstaked"
	EventRewardsDeposited  EventKind = "RewardsDeposited"
	EventRewardsClaimed    EventKind = "RewardsClaimed"
	EventRewardShortfall   EventKind = "RewardShortfall"
	EventRewardsUpdated    EventKind = "RewardsUpdated"
	EventBuybackExecuted   EventKind = "BuybackExecuted"
	EventTreasuryDeposited EventKind = "TreasuryDeposited"
	EventConfigUpdated     EventKind = "ConfigUpdated"
	EventSecurityAlert     EventKind = "SecurityAlert"
)

// Event is one journal entry emitted by a committed operation.
type Event struct {
	ID        string            `json:"id"`
	Kind      EventKind         `json:"kind"`
	Mint      common.Address    `json:"mint"`
	Account   common.Address    `json:"account"`
	Amount    uint64            `json:"amount"`
	Details   map[string]uint64 `json:"details,omitempty"`
	Note      string            `json:"note,omitempty"`
	Timestamp int64             `json:"timestamp"`
}
