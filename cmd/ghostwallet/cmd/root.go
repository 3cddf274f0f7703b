package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/eth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	envLogLevel  = "ETH_LOG_LEVEL"
	envLogFormat = "ETH_LOG_FORMAT"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	logJSON  bool

	dumpMetrics bool
)

// registry collects the broadcast and confirmation metrics of one run.
var registry = prometheus.NewRegistry()

var cliMetrics = sync.OnceValue(func() *eth.Metrics {
	return eth.NewMetrics(registry)
})

var rootCmd = &cobra.Command{
	Use:   "ghostwallet",
	Short: "HD wallet and transfer tool for EVM chains",
	Long: `ghostwallet derives BIP-44 accounts, reads native and ERC-20 balances,
and signs, broadcasts and tracks transfers against a single JSON-RPC node.

Configuration comes from ETH_* environment variables, an optional .env file
or a config file passed with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure. An
// interrupt cancels in-flight RPC calls and confirmation waits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if dumpMetrics {
		if werr := writeMetrics(os.Stderr); werr != nil {
			logrus.WithError(werr).Warn("Failed to write metrics")
		}
	}
	if err != nil {
		stop()
		kind, msg := errno.Decode(err)
		fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", kind, msg)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup()
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); defaults to the environment")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics to stderr on exit")
}

func setup() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", envFile, err)
	}

	if !rootCmd.PersistentFlags().Changed("log-level") {
		if env := os.Getenv(envLogLevel); env != "" {
			logLevel = env
		}
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if logJSON || strings.EqualFold(os.Getenv(envLogFormat), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

func loadConfig() (eth.Config, error) {
	if cfgFile != "" {
		return eth.NewConfigurationFromFile(cfgFile)
	}
	return eth.NewConfiguration()
}

// newService dials the configured node. The returned func closes the
// connection.
func newService(ctx context.Context) (*eth.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	chain, err := eth.Dial(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := eth.NewService(chain, cfg, eth.WithMetrics(cliMetrics()))
	return svc, chain.Close, nil
}

// writeMetrics writes the registry in the Prometheus text format.
func writeMetrics(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
