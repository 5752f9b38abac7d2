// Command prover builds withdrawal proofs for mixer notes from public chain history.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/tornado-prover/pkg/app/errors"
	"github.com/chainsafe/tornado-prover/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "prover",
		Short: "Withdrawal proof generator for mixer notes",
		Long: `prover rebuilds the deposit tree of a mixer instance from its on-chain
events and generates the zero-knowledge proof needed to withdraw a note.

Event logs are cached per instance. Only one process may write a cache at a
time: do not run "serve" and "sync" against the same cache concurrently.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")

	root.AddCommand(
		newParseNoteCmd(),
		newNewNoteCmd(opts),
		newGenerateProofCmd(opts),
		newPaymasterDataCmd(opts),
		newInspectCmd(opts),
		newSyncCmd(opts),
		newStatusCmd(opts),
		newCacheCmd(opts),
		newServeCmd(opts),
		newSetupCmd(opts),
	)
	return root
}

// env is the loaded configuration and a logger tagged with this run.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(opts *options) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, apperrors.FormatError(err, "failed to load configuration")
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, apperrors.FormatError(err, "failed to create logger")
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
