package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chainsafe/tornado-prover/pkg/app/watcher"
	"github.com/chainsafe/tornado-prover/pkg/events"
	"github.com/chainsafe/tornado-prover/pkg/hasher"
	"github.com/chainsafe/tornado-prover/pkg/note"
	"github.com/chainsafe/tornado-prover/pkg/proof"
	"github.com/chainsafe/tornado-prover/pkg/proof/groth16"
	"github.com/chainsafe/tornado-prover/pkg/withdraw"
)

func newParseNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse-note <note>",
		Short: "Decode a note and print its commitment and nullifier hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := note.Parse(hasher.NewMiMC(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"currency":      n.Currency,
				"amount":        n.Amount,
				"netId":         n.NetworkID,
				"commitment":    n.Deposit.CommitmentHex(),
				"nullifierHash": n.Deposit.NullifierHashHex(),
			})
		},
	}
}

func newNewNoteCmd(opts *options) *cobra.Command {
	var currency, amount string
	cmd := &cobra.Command{
		Use:   "new-note",
		Short: "Create a fresh note and print it with its commitment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, false, func(svc *withdraw.Service) error {
				s, d, err := svc.NewNote(cmd.Context(), currency, amount)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"note":       s,
					"commitment": d.CommitmentHex(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "eth", "Instance currency")
	cmd.Flags().StringVar(&amount, "amount", "0.1", "Instance denomination")
	return cmd
}

func newGenerateProofCmd(opts *options) *cobra.Command {
	var req withdraw.Request
	cmd := &cobra.Command{
		Use:   "generate-proof",
		Short: "Generate a withdrawal proof and its contract call arguments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, true, func(svc *withdraw.Service) error {
				out, err := svc.GenerateProof(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&req.Note, "note", "", "Deposit note")
	cmd.Flags().StringVar(&req.Recipient, "recipient", "", "Withdrawal recipient address")
	cmd.Flags().StringVar(&req.Relayer, "relayer", "", "Relayer address (default zero address)")
	cmd.Flags().StringVar(&req.Fee, "fee", "0", "Relayer fee in wei")
	cmd.Flags().StringVar(&req.Refund, "refund", "0", "Refund in wei")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("recipient")
	return cmd
}

func newPaymasterDataCmd(opts *options) *cobra.Command {
	var rawNote, paymaster string
	cmd := &cobra.Command{
		Use:   "paymaster-data",
		Short: "Generate a proof paying out to a paymaster and print the packed paymasterAndData",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, true, func(svc *withdraw.Service) error {
				blob, err := svc.PaymasterAndData(cmd.Context(), rawNote, paymaster)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), blob)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&rawNote, "note", "", "Deposit note")
	cmd.Flags().StringVar(&paymaster, "paymaster", "", "Paymaster address")
	_ = cmd.MarkFlagRequired("note")
	_ = cmd.MarkFlagRequired("paymaster")
	return cmd
}

func newInspectCmd(opts *options) *cobra.Command {
	var rawNote string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the deposit and withdrawal events of a note",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, false, func(svc *withdraw.Service) error {
				out, err := svc.Inspect(cmd.Context(), rawNote)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&rawNote, "note", "", "Deposit note")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func newSyncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Bring the event caches of every configured instance up to date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, false, func(svc *withdraw.Service) error {
				results, err := svc.SyncAll(cmd.Context())
				if err != nil {
					return err
				}
				type row struct {
					Key      string `json:"key"`
					Cursor   uint64 `json:"cursor"`
					Records  int    `json:"records"`
					Appended int    `json:"appended"`
				}
				rows := make([]row, 0, len(results))
				for _, r := range results {
					rows = append(rows, row{r.Key.String(), r.Cursor, len(r.Records), r.Appended})
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print cached cursors and record counts without syncing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, false, func(svc *withdraw.Service) error {
				st, err := svc.Status(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage event caches",
	}

	var currency, amount, kind string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Discard the cached events of an instance",
		Long:  "Discard the cached events of an instance. Use after a corrupt tree error; the next command resyncs from the deploy block.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var kinds []events.Kind
			if kind != "" {
				k, err := events.ParseKind(kind)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
			return withService(cmd, opts, false, func(svc *withdraw.Service) error {
				return svc.ResetCache(cmd.Context(), currency, amount, kinds...)
			})
		},
	}
	reset.Flags().StringVar(&currency, "currency", "", "Instance currency")
	reset.Flags().StringVar(&amount, "amount", "", "Instance denomination")
	reset.Flags().StringVar(&kind, "kind", "", "Only reset this event kind (Deposit or Withdrawal)")
	_ = reset.MarkFlagRequired("currency")
	_ = reset.MarkFlagRequired("amount")

	cmd.AddCommand(reset)
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Keep event caches warm and serve health, metrics and cache status",
		RunE: func(_ *cobra.Command, _ []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()
			return watcher.NewServer(e.cfg, e.logger).Run()
		},
	}
}

func newSetupCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Compile the withdraw circuit and generate development proving keys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.close()
			if dir == "" {
				dir = e.cfg.Circuit.Dir
			}
			if _, err := groth16.Setup(dir, e.logger); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "circuit artifacts written to %s\n", dir)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default circuit.dir from config)")
	return cmd
}

// withService opens the node and cache connections, runs fn and releases them.
func withService(cmd *cobra.Command, opts *options, prove bool, fn func(*withdraw.Service) error) error {
	e, err := loadEnv(opts)
	if err != nil {
		return err
	}
	defer e.close()

	var prover proof.Prover
	if prove {
		prover = groth16.NewEngine(e.cfg.Circuit.Dir, e.logger)
	}

	svc, cleanup, err := withdraw.Open(cmd.Context(), e.cfg, prover, e.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := fn(svc); err != nil {
		e.logger.Debug("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}
