package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Record namespaces.
const (
	NamespaceMaster   = "earn_master"
	NamespaceAsset    = "config"
	NamespaceTreasury = "treasury"
	NamespacePool     = "staking_pool"
	NamespaceStake    = "stake"
	NamespaceBalance  = "balance"
)

// Custody namespaces used to derive vault addresses.
const (
	namespaceTreasuryVault = "treasury-vault"
	namespaceRewardsVault  = "rewards-vault"
	namespaceStakeVault    = "stake-vault"
)

// RecordKey identifies one record. It is the Keccak-256 hash of the
// namespace followed by the address parts.
type RecordKey [32]byte

// Key derives the record key for namespace and parts, typically a mint and
// optionally an owner.
func Key(namespace string, parts ...common.Address) RecordKey {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(namespace))
	for _, part := range parts {
		data = append(data, part.Bytes())
	}
	return RecordKey(crypto.Keccak256Hash(data...))
}

func (k RecordKey) Hex() string {
	return common.Hash(k).Hex()
}

// DeriveAddress derives a custody address from namespace and parts.
func DeriveAddress(namespace string, parts ...common.Address) common.Address {
	k := Key(namespace, parts...)
	return common.BytesToAddress(k[12:])
}

// TreasuryVault holds the native funds backing a treasury balance.
func TreasuryVault(mint common.Address) common.Address {
	return DeriveAddress(namespaceTreasuryVault, mint)
}

// RewardsVault holds the native funds backing a pool's rewards.
func RewardsVault(mint common.Address) common.Address {
	return DeriveAddress(namespaceRewardsVault, mint)
}

// StakeVault holds the staked tokens of a pool.
func StakeVault(mint common.Address) common.Address {
	return DeriveAddress(namespaceStakeVault, mint)
}
