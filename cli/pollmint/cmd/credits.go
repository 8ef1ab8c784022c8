package cmd

import (
	"fmt"
	"strconv"

	"github.com/everFinance/pollmint/sdk"
	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits <wallet>",
	Short: "show the credit balance of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		credits, err := sdk.New(cfg.Server).GetCredits(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d credits\n", args[0], credits)
		return nil
	},
}

var addCreditsCmd = &cobra.Command{
	Use:   "add-credits <wallet> <credits>",
	Short: "grant credits to a wallet, needs admin_key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return err
		}
		credits, err := sdk.New(cfg.Server).AddCredits(cfg.AdminKey, args[0], n)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d credits\n", args[0], credits)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify-payment <txHash> <senderWallet>",
	Short: "credit a usdt payment to the treasury",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := sdk.New(cfg.Server).VerifyPayment(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(res.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(creditsCmd, addCreditsCmd, verifyCmd)
}
