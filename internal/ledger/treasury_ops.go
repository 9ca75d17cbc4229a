package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
	"earnLedger/internal/storage"
	"earnLedger/internal/treasury"
)

// ExecuteBuyback spends amount of the treasury on the asset and burns what
// the swap returns. Anyone may call it once the treasury reaches its
// threshold.
func (e *Engine) ExecuteBuyback(ctx context.Context, mint common.Address, amount, minOutput uint64) (treasury.Result, error) {
	var result treasury.Result
	err := e.run(ctx, "execute_buyback", func(ctx context.Context, st *opState) error {
		if _, err := requireMaster(st.tx); err != nil {
			return err
		}
		var err error
		result, err = e.gate.Execute(ctx, st.tx, mint, storage.TreasuryVault(mint), amount, minOutput, st.now)
		if err != nil {
			return err
		}

		event := newEvent(model.EventBuybackExecuted, mint, common.Address{}, amount, st.now)
		event.Details = map[string]uint64{
			"min_output": minOutput,
			"burned":     result.Burned,
		}
		st.emit(event)
		st.onCommit(func() {
			metrics.TokensBurned.Add(float64(result.Burned))
		})
		return nil
	})
	if err != nil {
		return treasury.Result{}, err
	}

	e.logger.Info("buyback executed",
		zap.String("mint", mint.Hex()),
		zap.Uint64("spent", result.Spent),
		zap.Uint64("burned", result.Burned),
	)
	return result, nil
}

// DepositTreasury moves amount of native funds from depositor straight into
// the treasury's buyback balance.
func (e *Engine) DepositTreasury(ctx context.Context, mint, depositor common.Address, amount uint64) error {
	return e.run(ctx, "deposit_treasury", func(ctx context.Context, st *opState) error {
		if amount == 0 {
			return model.ErrInvalidAmount
		}
		t, err := requireTreasury(st.tx, mint)
		if err != nil {
			return err
		}
		if err := treasury.Credit(&t, amount); err != nil {
			return err
		}
		if err := st.tx.PutTreasury(t); err != nil {
			return err
		}
		if err := e.cfg.Bank.Transfer(ctx, model.NativeAsset, depositor, storage.TreasuryVault(mint), amount); err != nil {
			return err
		}
		st.emit(newEvent(model.EventTreasuryDeposited, mint, depositor, amount, st.now))
		return nil
	})
}
