package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/eth"
	"github.com/nando-os/ghost-wallet/hdwallet"
	"github.com/spf13/cobra"
)

type walletView struct {
	Address        string `json:"address"`
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key"`
	Mnemonic       string `json:"mnemonic,omitempty"`
	DerivationPath string `json:"derivation_path,omitempty"`
}

func viewOf(w *hdwallet.Wallet) walletView {
	return walletView{
		Address:        w.Address.Hex(),
		PublicKey:      w.PublicKeyHex(),
		PrivateKey:     w.PrivateKeyHex(),
		Mnemonic:       w.Mnemonic,
		DerivationPath: w.DerivationPath,
	}
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Create or import wallets offline",
}

var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new mnemonic and derive account 0",
	RunE: func(cmd *cobra.Command, args []string) error {
		strength, _ := cmd.Flags().GetInt("strength")
		w, err := hdwallet.NewWallet(strength)
		if err != nil {
			return err
		}
		defer w.Wipe()
		return printJSON(cmd, viewOf(w))
	},
}

var walletImportMnemonicCmd = &cobra.Command{
	Use:   "import-mnemonic [words...]",
	Short: "Derive an account from a BIP-39 phrase (read from stdin when no words are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetUint32("index")
		passphrase, _ := cmd.Flags().GetString("passphrase")

		phrase := strings.Join(args, " ")
		if phrase == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errno.New(errno.InvalidMnemonic, "no mnemonic given")
			}
			phrase = line
		}

		w, err := hdwallet.FromMnemonic(phrase, passphrase, index)
		if err != nil {
			return err
		}
		defer w.Wipe()
		return printJSON(cmd, viewOf(w))
	},
}

var walletImportKeyCmd = &cobra.Command{
	Use:   "import-key <hex-private-key>",
	Short: "Show the address and public key of a raw private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := hdwallet.FromPrivateKey(args[0])
		if err != nil {
			return err
		}
		defer w.Wipe()
		return printJSON(cmd, viewOf(w))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <address>",
	Short: "Check an address and print its checksummed form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !eth.IsAddress(args[0]) {
			return errno.New(errno.InvalidAddress, "invalid address %q", args[0])
		}
		addr, err := eth.ToChecksumAddress(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
		return nil
	},
}

func init() {
	walletCreateCmd.Flags().Int("strength", hdwallet.DefaultStrengthBits, "entropy in bits (128 to 256, multiple of 32)")
	walletImportMnemonicCmd.Flags().Uint32("index", 0, "account index in m/44'/60'/0'/0/{index}")
	walletImportMnemonicCmd.Flags().String("passphrase", "", "optional BIP-39 passphrase")

	walletCmd.AddCommand(walletCreateCmd, walletImportMnemonicCmd, walletImportKeyCmd, validateCmd)
	rootCmd.AddCommand(walletCmd)
}
