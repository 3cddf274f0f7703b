package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/nando-os/ghost-wallet/eth"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the native balance, plus any --token balances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, _ := cmd.Flags().GetStringSlice("token")

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if len(tokens) == 0 {
			balance, err := svc.GetNativeBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, balance)
		}
		portfolio, err := svc.GetAllBalances(cmd.Context(), args[0], tokens)
		if err != nil {
			return err
		}
		return printJSON(cmd, portfolio)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "ERC-20 token queries",
}

var tokenInfoCmd = &cobra.Command{
	Use:   "info <token-address>",
	Short: "Show name, symbol, decimals and total supply of a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		info, err := svc.GetTokenInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var tokenBalanceCmd = &cobra.Command{
	Use:   "balance <token-address> <wallet-address>",
	Short: "Show the token balance of a wallet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		balance, err := svc.GetTokenBalance(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, balance)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Show the status of a transaction, optionally waiting for its receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if wait {
			result, err := svc.WaitForTransaction(cmd.Context(), args[0], timeout)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		}
		result, err := svc.GetTransactionStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show chain id, latest block and gas price of the configured node",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		info, err := svc.GetNetworkInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts configured in ETH_ACCOUNTS",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Resolving addresses needs no node connection.
		svc := eth.NewService(nil, cfg)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tADDRESS")
		for _, label := range cfg.Accounts() {
			account, err := svc.Account(label)
			if err != nil {
				fmt.Fprintf(w, "%s\t<%v>\n", label, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", account.Label, account.Address.Hex())
		}
		return w.Flush()
	},
}

func init() {
	balanceCmd.Flags().StringSlice("token", nil, "token contract address (repeatable)")
	statusCmd.Flags().Bool("wait", false, "poll until the receipt is available")
	statusCmd.Flags().Duration("timeout", 0, "wait timeout (default from ETH_TRANSACTION_TIMEOUT_SECONDS)")

	tokenCmd.AddCommand(tokenInfoCmd, tokenBalanceCmd)
	rootCmd.AddCommand(balanceCmd, tokenCmd, statusCmd, networkCmd, accountsCmd)
}
