package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"earnLedger/internal/fees"
	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
	"earnLedger/internal/registry"
	"earnLedger/internal/rewards"
	"earnLedger/internal/storage"
	"earnLedger/internal/treasury"
)

// CollectFee charges the fee on a trade of tradeAmount to payer and routes
// the buckets: protocol to the earn wallet, creator to the creator, buyback
// to the treasury and staking to the pool's rewards.
func (e *Engine) CollectFee(ctx context.Context, mint, payer common.Address, tradeAmount uint64) (fees.Split, error) {
	return e.collect(ctx, "collect_fee", mint, payer, tradeAmount)
}

// CollectFeeFromSwap applies the same split to the output of a swap.
func (e *Engine) CollectFeeFromSwap(ctx context.Context, mint, payer common.Address, swapOutput uint64) (fees.Split, error) {
	return e.collect(ctx, "collect_fee_from_swap", mint, payer, swapOutput)
}

func (e *Engine) collect(ctx context.Context, op string, mint, payer common.Address, amount uint64) (fees.Split, error) {
	var split fees.Split
	err := e.run(ctx, op, func(ctx context.Context, st *opState) error {
		master, err := requireMaster(st.tx)
		if err != nil {
			return err
		}
		asset, err := requireAsset(st.tx, mint)
		if err != nil {
			return err
		}
		split, err = fees.Compute(amount, asset)
		if err != nil {
			return err
		}
		if split.IsZero() {
			return nil
		}

		tr, err := requireTreasury(st.tx, mint)
		if err != nil {
			return err
		}
		pool, err := requirePool(st.tx, mint)
		if err != nil {
			return err
		}

		if err := treasury.Credit(&tr, split.Buyback); err != nil {
			return err
		}
		rewards.Deposit(&pool, split.Staking)
		pool.LastUpdate = st.now
		if err := registry.RecordFee(&asset, &master, split); err != nil {
			return err
		}

		if err := st.tx.PutTreasury(tr); err != nil {
			return err
		}
		if err := st.tx.PutPool(pool); err != nil {
			return err
		}
		if err := st.tx.PutAsset(asset); err != nil {
			return err
		}
		if err := st.tx.PutMaster(master); err != nil {
			return err
		}

		routes := []struct {
			to     common.Address
			amount uint64
		}{
			{master.EarnWallet, split.Earn},
			{asset.Creator, split.Creator},
			{storage.TreasuryVault(mint), split.Buyback},
			{storage.RewardsVault(mint), split.Staking},
		}
		for _, route := range routes {
			if err := e.cfg.Bank.Transfer(ctx, model.NativeAsset, payer, route.to, route.amount); err != nil {
				return err
			}
		}

		event := newEvent(model.EventFeeCollected, mint, payer, split.Total, st.now)
		event.Note = op
		event.Details = map[string]uint64{
			"trade_amount": amount,
			"earn":         split.Earn,
			"creator":      split.Creator,
			"buyback":      split.Buyback,
			"staking":      split.Staking,
		}
		st.emit(event)

		st.onCommit(func() {
			metrics.FeesCollected.WithLabelValues("earn").Add(float64(split.Earn))
			metrics.FeesCollected.WithLabelValues("creator").Add(float64(split.Creator))
			metrics.FeesCollected.WithLabelValues("buyback").Add(float64(split.Buyback))
			metrics.FeesCollected.WithLabelValues("staking").Add(float64(split.Staking))
		})
		return nil
	})
	if err != nil {
		return fees.Split{}, err
	}

	if split.IsZero() {
		e.logger.Debug("fee below collection threshold",
			zap.String("mint", mint.Hex()),
			zap.Uint64("amount", amount),
		)
	}
	return split, nil
}
