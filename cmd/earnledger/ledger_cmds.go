package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"earnLedger/internal/config"
	"earnLedger/internal/ledger"
	"earnLedger/internal/model"
	"earnLedger/internal/registry"
	"earnLedger/internal/storage"
)

func addLedgerCommands(root *cobra.Command) {
	initCmd := ledgerCommand("init", "Initialize the master aggregate", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		authority, err := addressFlag(cmd, "authority")
		if err != nil {
			return nil, err
		}
		earnWallet, err := optionalAddress(cmd, "earn-wallet")
		if err != nil {
			return nil, err
		}
		return rt.engine.InitializeMaster(ctx, authority, earnWallet)
	})
	initCmd.Flags().String("authority", "", "admin address")
	initCmd.Flags().String("earn-wallet", "", "protocol fee destination, defaults to the authority")
	root.AddCommand(initCmd)

	registerCmd := ledgerCommand("register", "Register an asset with its treasury and staking pool", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		signer, err := addressFlag(cmd, "signer")
		if err != nil {
			return nil, err
		}
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		creator, err := optionalAddress(cmd, "creator")
		if err != nil {
			return nil, err
		}
		feeBps, _ := cmd.Flags().GetUint16("fee-bps")
		reg := registry.Registration{
			Mint:          mint,
			Creator:       creator,
			FeeBps:        feeBps,
			CreatorCutBps: changedUint16(cmd, "creator-cut-bps"),
			BuybackCutBps: changedUint16(cmd, "buyback-cut-bps"),
			StakingCutBps: changedUint16(cmd, "staking-cut-bps"),
		}
		return rt.engine.RegisterAsset(ctx, signer, reg)
	})
	registerCmd.Flags().String("signer", "", "registering address")
	registerCmd.Flags().String("mint", "", "asset mint address")
	registerCmd.Flags().String("creator", "", "creator fee destination, defaults to the signer")
	registerCmd.Flags().Uint16("fee-bps", 100, "fee rate in basis points")
	registerCmd.Flags().Uint16("creator-cut-bps", 2000, "creator share of the fee")
	registerCmd.Flags().Uint16("buyback-cut-bps", 3500, "buyback share of the fee")
	registerCmd.Flags().Uint16("staking-cut-bps", 3500, "staking share of the fee")
	root.AddCommand(registerCmd)

	createPoolCmd := ledgerCommand("create-pool", "Create a staking pool for a mint", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		signer, err := addressFlag(cmd, "signer")
		if err != nil {
			return nil, err
		}
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		agent, err := optionalAddress(cmd, "agent-wallet")
		if err != nil {
			return nil, err
		}
		minStake, _ := cmd.Flags().GetUint64("min-stake")
		cooldown, _ := cmd.Flags().GetUint64("cooldown")
		return rt.engine.CreatePool(ctx, signer, ledger.PoolParams{
			Mint:            mint,
			AgentWallet:     agent,
			MinStake:        minStake,
			CooldownSeconds: cooldown,
		})
	})
	createPoolCmd.Flags().String("signer", "", "authority address")
	createPoolCmd.Flags().String("mint", "", "asset mint address")
	createPoolCmd.Flags().String("agent-wallet", "", "pool agent wallet")
	createPoolCmd.Flags().Uint64("min-stake", 0, "minimum stake per call")
	createPoolCmd.Flags().Uint64("cooldown", 0, "unstake cooldown in seconds")
	root.AddCommand(createPoolCmd)

	configurePoolCmd := ledgerCommand("configure-pool", "Change staking pool parameters", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		signer, err := addressFlag(cmd, "signer")
		if err != nil {
			return nil, err
		}
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		settings := ledger.PoolSettings{
			MinStake:        changedUint64(cmd, "min-stake"),
			CooldownSeconds: changedUint64(cmd, "cooldown"),
		}
		if cmd.Flags().Changed("paused") {
			paused, _ := cmd.Flags().GetBool("paused")
			settings.Paused = &paused
		}
		return rt.engine.ConfigurePool(ctx, signer, mint, settings)
	})
	configurePoolCmd.Flags().String("signer", "", "authority address")
	configurePoolCmd.Flags().String("mint", "", "asset mint address")
	configurePoolCmd.Flags().Uint64("min-stake", 0, "minimum stake per call")
	configurePoolCmd.Flags().Uint64("cooldown", 0, "unstake cooldown in seconds")
	configurePoolCmd.Flags().Bool("paused", false, "pause staking")
	root.AddCommand(configurePoolCmd)

	setActiveCmd := ledgerCommand("set-active", "Enable or disable fee collection for an asset", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		signer, err := addressFlag(cmd, "signer")
		if err != nil {
			return nil, err
		}
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		active, _ := cmd.Flags().GetBool("active")
		if err := rt.engine.SetAssetActive(ctx, signer, mint, active); err != nil {
			return nil, err
		}
		return rt.engine.Asset(ctx, mint)
	})
	setActiveCmd.Flags().String("signer", "", "authority address")
	setActiveCmd.Flags().String("mint", "", "asset mint address")
	setActiveCmd.Flags().Bool("active", true, "collect fees for the asset")
	root.AddCommand(setActiveCmd)

	setThresholdCmd := ledgerCommand("set-threshold", "Change a treasury's buyback threshold", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		signer, err := addressFlag(cmd, "signer")
		if err != nil {
			return nil, err
		}
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		threshold, _ := cmd.Flags().GetUint64("threshold")
		if err := rt.engine.SetBuybackThreshold(ctx, signer, mint, threshold); err != nil {
			return nil, err
		}
		return rt.engine.Treasury(ctx, mint)
	})
	setThresholdCmd.Flags().String("signer", "", "authority address")
	setThresholdCmd.Flags().String("mint", "", "asset mint address")
	setThresholdCmd.Flags().Uint64("threshold", 100_000_000, "treasury balance required for a buyback")
	root.AddCommand(setThresholdCmd)

	for _, fromSwap := range []bool{false, true} {
		fromSwap := fromSwap
		use, short := "collect-fee", "Collect the fee on a trade"
		if fromSwap {
			use, short = "collect-swap-fee", "Collect the fee on a swap's output"
		}
		collectCmd := ledgerCommand(use, short, func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
			mint, err := addressFlag(cmd, "mint")
			if err != nil {
				return nil, err
			}
			payer, err := addressFlag(cmd, "payer")
			if err != nil {
				return nil, err
			}
			amount, _ := cmd.Flags().GetUint64("amount")
			if fromSwap {
				return rt.engine.CollectFeeFromSwap(ctx, mint, payer, amount)
			}
			return rt.engine.CollectFee(ctx, mint, payer, amount)
		})
		collectCmd.Flags().String("mint", "", "asset mint address")
		collectCmd.Flags().String("payer", "", "fee payer")
		collectCmd.Flags().Uint64("amount", 0, "trade amount or swap output")
		root.AddCommand(collectCmd)
	}

	stakeCmd := ledgerCommand("stake", "Stake tokens into a pool", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, owner, amount, err := positionFlags(cmd)
		if err != nil {
			return nil, err
		}
		if err := rt.engine.Stake(ctx, mint, owner, amount); err != nil {
			return nil, err
		}
		return rt.engine.Position(ctx, mint, owner)
	})
	addPositionFlags(stakeCmd, true)
	root.AddCommand(stakeCmd)

	unstakeCmd := ledgerCommand("unstake", "Withdraw stake and accrued rewards", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, owner, amount, err := positionFlags(cmd)
		if err != nil {
			return nil, err
		}
		return rt.engine.Unstake(ctx, mint, owner, amount)
	})
	addPositionFlags(unstakeCmd, true)
	root.AddCommand(unstakeCmd)

	requestCmd := ledgerCommand("request-unstake", "Start the unstake cooldown", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, owner, amount, err := positionFlags(cmd)
		if err != nil {
			return nil, err
		}
		recorded, err := rt.engine.RequestUnstake(ctx, mint, owner, amount)
		if err != nil {
			return nil, err
		}
		if !recorded {
			rt.logger.Info("pool has no cooldown; nothing recorded")
		}
		return rt.engine.Position(ctx, mint, owner)
	})
	addPositionFlags(requestCmd, true)
	root.AddCommand(requestCmd)

	cancelCmd := ledgerCommand("cancel-unstake", "Cancel a pending unstake request", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, owner, _, err := positionFlags(cmd)
		if err != nil {
			return nil, err
		}
		if err := rt.engine.CancelUnstake(ctx, mint, owner); err != nil {
			return nil, err
		}
		return rt.engine.Position(ctx, mint, owner)
	})
	addPositionFlags(cancelCmd, false)
	root.AddCommand(cancelCmd)

	claimCmd := ledgerCommand("claim", "Claim accrued staking rewards", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, owner, _, err := positionFlags(cmd)
		if err != nil {
			return nil, err
		}
		return rt.engine.ClaimRewards(ctx, mint, owner)
	})
	addPositionFlags(claimCmd, false)
	root.AddCommand(claimCmd)

	for _, toTreasury := range []bool{false, true} {
		toTreasury := toTreasury
		use, short := "deposit-rewards", "Deposit native funds into a pool's rewards"
		if toTreasury {
			use, short = "deposit-treasury", "Deposit native funds into a treasury"
		}
		depositCmd := ledgerCommand(use, short, func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
			mint, err := addressFlag(cmd, "mint")
			if err != nil {
				return nil, err
			}
			from, err := addressFlag(cmd, "from")
			if err != nil {
				return nil, err
			}
			amount, _ := cmd.Flags().GetUint64("amount")
			if toTreasury {
				if err := rt.engine.DepositTreasury(ctx, mint, from, amount); err != nil {
					return nil, err
				}
				return rt.engine.Treasury(ctx, mint)
			}
			if err := rt.engine.DepositRewards(ctx, mint, from, amount); err != nil {
				return nil, err
			}
			return rt.engine.Pool(ctx, mint)
		})
		depositCmd.Flags().String("mint", "", "asset mint address")
		depositCmd.Flags().String("from", "", "depositor")
		depositCmd.Flags().Uint64("amount", 0, "native amount")
		root.AddCommand(depositCmd)
	}

	updateCmd := ledgerCommand("update-rewards", "Refresh a pool's reward timestamp", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		return rt.engine.UpdateRewards(ctx, mint)
	})
	updateCmd.Flags().String("mint", "", "asset mint address")
	root.AddCommand(updateCmd)

	buybackCmd := ledgerCommand("buyback", "Spend treasury funds on the asset and burn it", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		mint, err := addressFlag(cmd, "mint")
		if err != nil {
			return nil, err
		}
		amount, _ := cmd.Flags().GetUint64("amount")
		minOutput, _ := cmd.Flags().GetUint64("min-output")
		return rt.engine.ExecuteBuyback(ctx, mint, amount, minOutput)
	})
	buybackCmd.Flags().String("mint", "", "asset mint address")
	buybackCmd.Flags().Uint64("amount", 0, "native amount to spend")
	buybackCmd.Flags().Uint64("min-output", 0, "minimum tokens the swap must return")
	root.AddCommand(buybackCmd)

	fundCmd := ledgerCommand("fund", "Credit a local balance", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		asset, err := optionalAddress(cmd, "asset")
		if err != nil {
			return nil, err
		}
		holder, err := addressFlag(cmd, "holder")
		if err != nil {
			return nil, err
		}
		amount, _ := cmd.Flags().GetUint64("amount")

		var balance model.Balance
		err = rt.store.Update(ctx, func(tx storage.Tx) error {
			if err := rt.book.Mint(storage.WithTx(ctx, tx), asset, holder, amount); err != nil {
				return err
			}
			held, err := tx.Balance(asset, holder)
			balance = model.Balance{Asset: asset, Holder: holder, Amount: held}
			return err
		})
		if err != nil {
			return nil, err
		}
		return balance, nil
	})
	fundCmd.Flags().String("asset", "", "asset mint, empty for the native unit")
	fundCmd.Flags().String("holder", "", "address to credit")
	fundCmd.Flags().Uint64("amount", 0, "amount to credit")
	root.AddCommand(fundCmd)

	showCmd := ledgerCommand("show", "Print the ledger state or one position", func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		if cmd.Flags().Changed("owner") {
			mint, owner, _, err := positionFlags(cmd)
			if err != nil {
				return nil, err
			}
			return rt.engine.Position(ctx, mint, owner)
		}

		snap, err := rt.engine.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		raw, _ := cmd.Flags().GetStringSlice("mints")
		if len(raw) == 0 {
			return snap, nil
		}
		mints, err := config.ParseAddresses(raw)
		if err != nil {
			return nil, fmt.Errorf("--mints: %w", err)
		}
		return snap.Only(mints), nil
	})
	addPositionFlags(showCmd, false)
	showCmd.Flags().StringSlice("mints", nil, "limit the snapshot to these mints (comma-separated)")
	root.AddCommand(showCmd)

	eventsCmd := ledgerCommand("events", "Print the most recent journal events", func(_ context.Context, cmd *cobra.Command, rt *runtime) (any, error) {
		if rt.cfg.Journal == "" {
			return nil, errors.New("journal is disabled")
		}
		tail, _ := cmd.Flags().GetInt("tail")
		return storage.NewJournal(rt.cfg.Journal).Tail(tail)
	})
	eventsCmd.Flags().Int("tail", 20, "number of events to print, 0 for all")
	root.AddCommand(eventsCmd)
}

func addPositionFlags(cmd *cobra.Command, withAmount bool) {
	cmd.Flags().String("mint", "", "asset mint address")
	cmd.Flags().String("owner", "", "stake owner")
	if withAmount {
		cmd.Flags().Uint64("amount", 0, "token amount")
	}
}

func positionFlags(cmd *cobra.Command) (mint, owner common.Address, amount uint64, err error) {
	if mint, err = addressFlag(cmd, "mint"); err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	if owner, err = addressFlag(cmd, "owner"); err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	if cmd.Flags().Lookup("amount") != nil {
		amount, _ = cmd.Flags().GetUint64("amount")
	}
	return mint, owner, amount, nil
}

// optionalAddress is the zero address when the flag is empty.
func optionalAddress(cmd *cobra.Command, name string) (common.Address, error) {
	if raw, _ := cmd.Flags().GetString(name); raw == "" {
		return common.Address{}, nil
	}
	return addressFlag(cmd, name)
}

func changedUint16(cmd *cobra.Command, name string) *uint16 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetUint16(name)
	return &v
}

func changedUint64(cmd *cobra.Command, name string) *uint64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetUint64(name)
	return &v
}
