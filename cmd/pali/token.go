package main

import (
	"net/url"

	"github.com/urfave/cli/v2"
)

var guidFlag = cli.StringFlag{
	Name:     "guid",
	Usage:    "the guid of the token",
	Required: true,
}

var token = cli.Command{
	Name:  "token",
	Usage: "create, issue and manage the tokens of the wallet",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create a new token owned by the active account",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     "symbol",
					Usage:    "the ticker of the token, up to 8 characters",
					Required: true,
				},
				&cli.UintFlag{
					Name:  "precision",
					Usage: "the number of decimals of the token",
					Value: 8,
				},
				&cli.StringFlag{
					Name:     "max-supply",
					Usage:    "the max supply of the token",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "description",
					Usage: "the public description of the token",
				},
				&cli.StringFlag{
					Name:  "receiver",
					Usage: "the address receiving the initial supply",
				},
				&cli.StringFlag{
					Name:  "initial-supply",
					Usage: "the amount issued right after the creation",
				},
				&cli.UintFlag{
					Name:  "capability-flags",
					Usage: "the update capabilities of the token",
					Value: 127,
				},
				&cli.StringFlag{
					Name:  "notary-address",
					Usage: "the address of the notary",
				},
				&cli.StringFlag{
					Name:  "payout-address",
					Usage: "the address receiving the aux fees",
				},
			}, stageFlags...),
			Action: createTokenAction,
		},
		{
			Name:  "mint",
			Usage: "issue new supply of a token",
			Flags: append([]cli.Flag{
				&guidFlag,
				&cli.StringFlag{
					Name:     "amount",
					Usage:    "the amount to issue",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "receiver",
					Usage: "the address receiving the new supply",
				},
			}, stageFlags...),
			Action: mintTokenAction,
		},
		{
			Name:  "update",
			Usage: "update the properties of a token",
			Flags: append([]cli.Flag{
				&guidFlag,
				&cli.StringFlag{
					Name:  "contract",
					Usage: "the address of the token contract on NEVM",
				},
				&cli.UintFlag{
					Name:  "capability-flags",
					Usage: "the new update capabilities of the token",
				},
				&cli.StringFlag{
					Name:  "description",
					Usage: "the new public description of the token",
				},
				&cli.StringFlag{
					Name:  "notary-address",
					Usage: "the address of the notary",
				},
				&cli.StringFlag{
					Name:  "payout-address",
					Usage: "the address receiving the aux fees",
				},
			}, stageFlags...),
			Action: updateTokenAction,
		},
		{
			Name:  "transfer",
			Usage: "transfer the ownership of a token",
			Flags: append([]cli.Flag{
				&guidFlag,
				&cli.StringFlag{
					Name:     "new-owner",
					Usage:    "the address of the new owner",
					Required: true,
				},
			}, stageFlags...),
			Action: transferTokenAction,
		},
		{
			Name:   "reload",
			Usage:  "reload the token holdings of the active account",
			Action: reloadTokensAction,
		},
		{
			Name:   "info",
			Usage:  "get the details of a token",
			Flags:  []cli.Flag{&guidFlag},
			Action: tokenInfoAction,
		},
	},
}

var nft = cli.Command{
	Name:  "nft",
	Usage: "create an NFT and issue it to the receiver",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "symbol",
			Usage:    "the ticker of the NFT",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "description",
			Usage: "the public description of the NFT",
		},
		&cli.StringFlag{
			Name:  "receiver",
			Usage: "the address receiving the NFT",
		},
		&cli.UintFlag{
			Name:  "precision",
			Usage: "the number of decimals of the NFT",
		},
	}, stageFlags...),
	Action: nftAction,
}

func createTokenAction(ctx *cli.Context) error {
	req := map[string]interface{}{
		"symbol":          ctx.String("symbol"),
		"precision":       ctx.Uint("precision"),
		"maxsupply":       ctx.String("max-supply"),
		"description":     ctx.String("description"),
		"receiver":        ctx.String("receiver"),
		"capabilityflags": ctx.Uint("capability-flags"),
	}
	if supply := ctx.String("initial-supply"); supply != "" {
		req["initialSupply"] = supply
	}
	setIfNotEmpty(ctx, req, "notary-address", "notaryAddress")
	setIfNotEmpty(ctx, req, "payout-address", "payoutAddress")
	return stageAndConfirm(ctx, "new-asset", req)
}

func mintTokenAction(ctx *cli.Context) error {
	req := map[string]interface{}{
		"assetGuid": ctx.String("guid"),
		"amount":    ctx.String("amount"),
	}
	setIfNotEmpty(ctx, req, "receiver", "receiveAddress")
	return stageAndConfirm(ctx, "mint-asset", req)
}

func updateTokenAction(ctx *cli.Context) error {
	req := map[string]interface{}{
		"assetGuid": ctx.String("guid"),
	}
	if ctx.IsSet("capability-flags") {
		req["capabilityflags"] = ctx.Uint("capability-flags")
	}
	setIfNotEmpty(ctx, req, "contract", "contract")
	setIfNotEmpty(ctx, req, "description", "description")
	setIfNotEmpty(ctx, req, "notary-address", "notaryAddress")
	setIfNotEmpty(ctx, req, "payout-address", "payoutAddress")
	return stageAndConfirm(ctx, "update-asset", req)
}

func transferTokenAction(ctx *cli.Context) error {
	return stageAndConfirm(ctx, "transfer-ownership", map[string]interface{}{
		"assetGuid": ctx.String("guid"),
		"newOwner":  ctx.String("new-owner"),
	})
}

func nftAction(ctx *cli.Context) error {
	return stageAndConfirm(ctx, "new-nft", map[string]interface{}{
		"symbol":      ctx.String("symbol"),
		"description": ctx.String("description"),
		"receiver":    ctx.String("receiver"),
		"precision":   ctx.Uint("precision"),
	})
}

func reloadTokensAction(ctx *cli.Context) error {
	return postAndPrint("/v1/tokens/update", nil)
}

func tokenInfoAction(ctx *cli.Context) error {
	return getAndPrint("/v1/assets/" + url.PathEscape(ctx.String("guid")))
}

func setIfNotEmpty(
	ctx *cli.Context, req map[string]interface{}, flag, field string,
) {
	if value := ctx.String(flag); value != "" {
		req[field] = value
	}
}
