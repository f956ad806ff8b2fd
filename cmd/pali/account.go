package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var accountIDFlag = cli.IntFlag{
	Name:     "id",
	Usage:    "the id of the account",
	Required: true,
}

var account = cli.Command{
	Name:  "account",
	Usage: "manage the accounts of the wallet",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "list all accounts of the wallet",
			Action: listAccountsAction,
		},
		{
			Name:  "create",
			Usage: "derive a new account from the wallet seed",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "label",
					Usage: "the label of the account",
				},
			},
			Action: createAccountAction,
		},
		{
			Name:  "import-trezor",
			Usage: "import a watch-only account signed by a trezor device",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "xpub",
					Usage:    "the extended public key of the account",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "path",
					Usage: "the derivation path of the account",
				},
				&cli.StringFlag{
					Name:  "label",
					Usage: "the label of the account",
				},
			},
			Action: importTrezorAccountAction,
		},
		{
			Name:   "info",
			Usage:  "get the details of an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: accountInfoAction,
		},
		{
			Name:   "switch",
			Usage:  "make an account the active one",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: switchAccountAction,
		},
		{
			Name:  "rename",
			Usage: "change the label of an account",
			Flags: []cli.Flag{
				&accountIDFlag,
				&cli.StringFlag{
					Name:     "label",
					Usage:    "the new label of the account",
					Required: true,
				},
			},
			Action: renameAccountAction,
		},
		{
			Name:   "refresh",
			Usage:  "reload balance, transactions and tokens of an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: refreshAccountAction,
		},
		{
			Name:   "holdings",
			Usage:  "list the tokens held by an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: holdingsAction,
		},
		{
			Name:   "minted",
			Usage:  "list the tokens minted by an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: mintedTokensAction,
		},
		{
			Name:   "change-address",
			Usage:  "get the next unused change address of an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: changeAddressAction,
		},
		{
			Name:   "fiat",
			Usage:  "get the balance of an account in fiat currency",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: fiatBalanceAction,
		},
		{
			Name:   "flows",
			Usage:  "list the transaction flows of an account",
			Flags:  []cli.Flag{&accountIDFlag},
			Action: listFlowsAction,
		},
	},
}

func accountPath(ctx *cli.Context, suffix string) string {
	return fmt.Sprintf("/v1/accounts/%d%s", ctx.Int("id"), suffix)
}

func listAccountsAction(ctx *cli.Context) error {
	return getAndPrint("/v1/accounts")
}

func createAccountAction(ctx *cli.Context) error {
	return postAndPrint("/v1/accounts", map[string]string{
		"label": ctx.String("label"),
	})
}

func importTrezorAccountAction(ctx *cli.Context) error {
	return postAndPrint("/v1/accounts/trezor", map[string]string{
		"xpub":  ctx.String("xpub"),
		"path":  ctx.String("path"),
		"label": ctx.String("label"),
	})
}

func accountInfoAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, ""))
}

func switchAccountAction(ctx *cli.Context) error {
	return postAndPrint(accountPath(ctx, "/switch"), nil)
}

func renameAccountAction(ctx *cli.Context) error {
	return postAndPrint(accountPath(ctx, "/rename"), map[string]string{
		"label": ctx.String("label"),
	})
}

func refreshAccountAction(ctx *cli.Context) error {
	return postAndPrint(accountPath(ctx, "/refresh"), nil)
}

func holdingsAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, "/holdings"))
}

func mintedTokensAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, "/minted"))
}

func changeAddressAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, "/change-address"))
}

func fiatBalanceAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, "/fiat"))
}

func listFlowsAction(ctx *cli.Context) error {
	return getAndPrint(accountPath(ctx, "/flows"))
}
