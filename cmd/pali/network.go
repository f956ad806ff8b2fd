package main

import (
	"net/url"

	"github.com/urfave/cli/v2"
)

var network = cli.Command{
	Name:   "network",
	Usage:  "list the supported networks",
	Action: listNetworksAction,
	Subcommands: []*cli.Command{
		{
			Name:  "switch",
			Usage: "connect the wallet to another network",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "network",
					Usage:    "the id of the network",
					Required: true,
				},
			},
			Action: switchNetworkAction,
		},
	},
}

var checkaddress = cli.Command{
	Name:      "checkaddress",
	Usage:     "check whether an address is valid on the active network",
	ArgsUsage: "<address>",
	Action:    checkAddressAction,
}

var price = cli.Command{
	Name:  "price",
	Usage: "get the price of the native coin",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "currency",
			Usage: "the fiat currency",
			Value: "usd",
		},
	},
	Action: priceAction,
}

func listNetworksAction(ctx *cli.Context) error {
	return getAndPrint("/v1/networks")
}

func switchNetworkAction(ctx *cli.Context) error {
	return postAndPrint("/v1/network", map[string]string{
		"network": ctx.String("network"),
	})
}

func checkAddressAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, "checkaddress"}
	}
	return getAndPrint("/v1/address/" + url.PathEscape(ctx.Args().First()))
}

func priceAction(ctx *cli.Context) error {
	return getAndPrint("/v1/price/" + url.PathEscape(ctx.String("currency")))
}
