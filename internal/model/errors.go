package model

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrFeeTooHigh       = errors.New("fee too high")
	ErrInvalidFeeSplits = errors.New("fee splits must sum to 10000 bps")
)

// State errors.
var (
	ErrTokenNotActive           = errors.New("token not active")
	ErrTokenAlreadyRegistered   = errors.New("token already registered")
	ErrTokenNotRegistered       = errors.New("token not registered")
	ErrPoolPaused               = errors.New("pool paused")
	ErrPoolAlreadyExists        = errors.New("pool already exists")
	ErrPoolNotFound             = errors.New("pool not found")
	ErrStakeAccountNotFound     = errors.New("stake account not found")
	ErrMasterAlreadyInitialized = errors.New("master aggregate already initialized")
	ErrMasterNotInitialized     = errors.New("master aggregate not initialized")
)

// Balance errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStake   = errors.New("insufficient stake")
	ErrInsufficientRewards = errors.New("insufficient rewards in vault")
	ErrNoRewardsToClaim    = errors.New("no rewards to claim")
	ErrStakeBelowMinimum   = errors.New("stake below minimum")
)

// Gating errors.
var (
	ErrBelowBuybackThreshold   = errors.New("treasury below buyback threshold")
	ErrCooldownNotPassed       = errors.New("cooldown not passed")
	ErrAlreadyRequestedUnstake = errors.New("unstake already requested")
	ErrNoUnstakeRequest        = errors.New("no unstake request")
	ErrSlippageExceeded        = errors.New("slippage exceeded")
)

// Authorization errors. ErrReentrancy matches ErrUnauthorized under errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrReentrancy   = fmt.Errorf("%w: reentrant call", ErrUnauthorized)
)

// Input and arithmetic errors.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTokenMint = errors.New("invalid token mint")
	ErrOverflow         = errors.New("arithmetic overflow")
	ErrTransferFailed   = errors.New("transfer failed")
)
