package cmd

import (
	"fmt"
	"os"

	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/eth"
	"github.com/nando-os/ghost-wallet/units"
	"github.com/spf13/cobra"
)

const envPrivateKey = "ETH_PRIVATE_KEY"

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the native asset, or an ERC-20 token with --token",
	Long: `Send signs a legacy EIP-155 transaction locally and broadcasts it.

The sender key is taken from --account (a label in ETH_ACCOUNTS), --key, or
ETH_PRIVATE_KEY, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		rawAmount, _ := cmd.Flags().GetString("amount")
		token, _ := cmd.Flags().GetString("token")
		wait, _ := cmd.Flags().GetBool("wait")

		amount, err := units.ParseAmount(rawAmount)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		key, err := senderKey(cmd, cfg)
		if err != nil {
			return err
		}

		svc, closeFn, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		var result *eth.TransferResult
		if token != "" {
			result, err = svc.SendToken(cmd.Context(), key, token, to, amount, wait)
		} else {
			result, err = svc.SendNative(cmd.Context(), key, to, amount, wait)
		}
		if result != nil {
			if perr := printJSON(cmd, result); perr != nil {
				return perr
			}
		}
		return err
	},
}

func senderKey(cmd *cobra.Command, cfg eth.Config) (string, error) {
	if label, _ := cmd.Flags().GetString("account"); label != "" {
		return cfg.AccountPrivateKey(label)
	}
	if key, _ := cmd.Flags().GetString("key"); key != "" {
		return key, nil
	}
	if key := os.Getenv(envPrivateKey); key != "" {
		return key, nil
	}
	return "", errno.New(errno.InvalidPrivateKey, "no sender key: use --account, --key or %s", envPrivateKey)
}

func init() {
	sendCmd.Flags().String("to", "", "recipient address")
	sendCmd.Flags().String("amount", "", fmt.Sprintf("amount in whole units, e.g. %q", "0.01"))
	sendCmd.Flags().String("token", "", "ERC-20 contract address; omit for the native asset")
	sendCmd.Flags().String("account", "", "sender label from ETH_ACCOUNTS")
	sendCmd.Flags().String("key", "", "sender private key (hex)")
	sendCmd.Flags().Bool("wait", false, "wait for the receipt before returning")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(sendCmd)
}
