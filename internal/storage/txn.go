package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"earnLedger/internal/model"
)

var allNamespaces = []string{
	NamespaceMaster,
	NamespaceAsset,
	NamespaceTreasury,
	NamespacePool,
	NamespaceStake,
	NamespaceBalance,
}

// kv is the raw bucketed key/value surface a backend exposes to recordTx.
// get returns nil for a missing key.
type kv interface {
	get(bucket string, key RecordKey) ([]byte, error)
	put(bucket string, key RecordKey, value []byte) error
	forEach(bucket string, fn func(value []byte) error) error
}

// recordTx implements Tx on top of any kv backend.
type recordTx struct {
	kv kv
}

var _ Tx = (*recordTx)(nil)

func getRecord[T any](store kv, bucket string, key RecordKey) (T, bool, error) {
	var rec T
	data, err := store.get(bucket, key)
	if err != nil || data == nil {
		return rec, false, err
	}
	if err := decodeGob(data, &rec); err != nil {
		return rec, false, fmt.Errorf("decode %s record: %w", bucket, err)
	}
	return rec, true, nil
}

func putRecord(store kv, bucket string, key RecordKey, rec interface{}) error {
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", bucket, err)
	}
	return store.put(bucket, key, data)
}

func listRecords[T any](store kv, bucket string, keep func(T) bool) ([]T, error) {
	var out []T
	err := store.forEach(bucket, func(data []byte) error {
		var rec T
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("decode %s record: %w", bucket, err)
		}
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (t *recordTx) Master() (model.Master, bool, error) {
	return getRecord[model.Master](t.kv, NamespaceMaster, Key(NamespaceMaster))
}

func (t *recordTx) PutMaster(m model.Master) error {
	return putRecord(t.kv, NamespaceMaster, Key(NamespaceMaster), m)
}

func (t *recordTx) Asset(mint common.Address) (model.Asset, bool, error) {
	return getRecord[model.Asset](t.kv, NamespaceAsset, Key(NamespaceAsset, mint))
}

func (t *recordTx) PutAsset(a model.Asset) error {
	return putRecord(t.kv, NamespaceAsset, Key(NamespaceAsset, a.Mint), a)
}

func (t *recordTx) Assets() ([]model.Asset, error) {
	return listRecords[model.Asset](t.kv, NamespaceAsset, nil)
}

func (t *recordTx) Treasury(mint common.Address) (model.Treasury, bool, error) {
	return getRecord[model.Treasury](t.kv, NamespaceTreasury, Key(NamespaceTreasury, mint))
}

func (t *recordTx) PutTreasury(tr model.Treasury) error {
	return putRecord(t.kv, NamespaceTreasury, Key(NamespaceTreasury, tr.Mint), tr)
}

func (t *recordTx) Pool(mint common.Address) (model.Pool, bool, error) {
	return getRecord[model.Pool](t.kv, NamespacePool, Key(NamespacePool, mint))
}

func (t *recordTx) PutPool(p model.Pool) error {
	return putRecord(t.kv, NamespacePool, Key(NamespacePool, p.Mint), p)
}

func (t *recordTx) Pools() ([]model.Pool, error) {
	return listRecords[model.Pool](t.kv, NamespacePool, nil)
}

func (t *recordTx) StakeAccount(mint, owner common.Address) (model.StakeAccount, bool, error) {
	return getRecord[model.StakeAccount](t.kv, NamespaceStake, Key(NamespaceStake, mint, owner))
}

func (t *recordTx) PutStakeAccount(a model.StakeAccount) error {
	return putRecord(t.kv, NamespaceStake, Key(NamespaceStake, a.Mint, a.Owner), a)
}

func (t *recordTx) StakeAccounts(mint common.Address) ([]model.StakeAccount, error) {
	return listRecords(t.kv, NamespaceStake, func(a model.StakeAccount) bool {
		return a.Mint == mint
	})
}

func (t *recordTx) Balance(asset, holder common.Address) (uint64, error) {
	b, _, err := getRecord[model.Balance](t.kv, NamespaceBalance, Key(NamespaceBalance, asset, holder))
	return b.Amount, err
}

func (t *recordTx) PutBalance(b model.Balance) error {
	return putRecord(t.kv, NamespaceBalance, Key(NamespaceBalance, b.Asset, b.Holder), b)
}
