package model

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// MarshalJSON encodes the scaled accumulator as a decimal string.
func (p Pool) MarshalJSON() ([]byte, error) {
	type Alias Pool
	return json.Marshal(struct {
		Alias
		RewardPerShare string `json:"reward_per_share"`
	}{Alias: Alias(p), RewardPerShare: p.RewardPerShare.ToBig().String()})
}

// UnmarshalJSON decodes a Pool from JSON.
func (p *Pool) UnmarshalJSON(data []byte) error {
	type Alias Pool
	aux := struct {
		*Alias
		RewardPerShare string `json:"reward_per_share"`
	}{Alias: (*Alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return setDecimal(&p.RewardPerShare, aux.RewardPerShare)
}

// MarshalJSON encodes the settlement snapshot as a decimal string.
func (a StakeAccount) MarshalJSON() ([]byte, error) {
	type Alias StakeAccount
	return json.Marshal(struct {
		Alias
		RewardPerSharePaid string `json:"reward_per_share_paid"`
	}{Alias: Alias(a), RewardPerSharePaid: a.RewardPerSharePaid.ToBig().String()})
}

// UnmarshalJSON decodes a StakeAccount from JSON.
func (a *StakeAccount) UnmarshalJSON(data []byte) error {
	type Alias StakeAccount
	aux := struct {
		*Alias
		RewardPerSharePaid string `json:"reward_per_share_paid"`
	}{Alias: (*Alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return setDecimal(&a.RewardPerSharePaid, aux.RewardPerSharePaid)
}

func setDecimal(dst *uint256.Int, s string) error {
	if s == "" {
		dst.Clear()
		return nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return fmt.Errorf("invalid decimal %q", s)
	}
	if overflow := dst.SetFromBig(b); overflow {
		return fmt.Errorf("decimal %q overflows 256 bits", s)
	}
	return nil
}
