package main

import (
	"github.com/urfave/cli/v2"
)

var originFlag = cli.StringFlag{
	Name:     "origin",
	Usage:    "the origin of the connected page, like https://app.example.com",
	Required: true,
}

var nonceFlag = cli.StringFlag{
	Name:     "nonce",
	Usage:    "the nonce of the pending connection request",
	Required: true,
}

var connection = cli.Command{
	Name:   "connection",
	Usage:  "list the pages connected to the wallet",
	Action: listConnectionsAction,
	Subcommands: []*cli.Command{
		{
			Name:   "pending",
			Usage:  "list the connection requests waiting for approval",
			Action: listPendingConnectionsAction,
		},
		{
			Name:  "approve",
			Usage: "connect the requesting page to an account",
			Flags: []cli.Flag{
				&nonceFlag,
				&cli.IntFlag{
					Name:     "account_id",
					Usage:    "the id of the account to connect",
					Required: true,
				},
			},
			Action: approveConnectionAction,
		},
		{
			Name:   "reject",
			Usage:  "reject a connection request",
			Flags:  []cli.Flag{&nonceFlag},
			Action: rejectConnectionAction,
		},
		{
			Name:  "change",
			Usage: "change the account connected to a page",
			Flags: []cli.Flag{
				&originFlag,
				&cli.IntFlag{
					Name:     "account_id",
					Usage:    "the id of the account to connect",
					Required: true,
				},
			},
			Action: changeConnectedAccountAction,
		},
		{
			Name:   "disconnect",
			Usage:  "disconnect a page from the wallet",
			Flags:  []cli.Flag{&originFlag},
			Action: disconnectAction,
		},
	},
}

func listConnectionsAction(ctx *cli.Context) error {
	return getAndPrint("/v1/connections")
}

func listPendingConnectionsAction(ctx *cli.Context) error {
	return getAndPrint("/v1/connections/pending")
}

func approveConnectionAction(ctx *cli.Context) error {
	return postAndPrint("/v1/connections/approve", map[string]interface{}{
		"nonce":     ctx.String("nonce"),
		"accountId": ctx.Int("account_id"),
	})
}

func rejectConnectionAction(ctx *cli.Context) error {
	return postAndPrint("/v1/connections/reject", map[string]interface{}{
		"nonce": ctx.String("nonce"),
	})
}

func changeConnectedAccountAction(ctx *cli.Context) error {
	return postAndPrint("/v1/connections/change", map[string]interface{}{
		"origin":    ctx.String("origin"),
		"accountId": ctx.Int("account_id"),
	})
}

func disconnectAction(ctx *cli.Context) error {
	return postAndPrint("/v1/connections/disconnect", map[string]interface{}{
		"origin": ctx.String("origin"),
	})
}
