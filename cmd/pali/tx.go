package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var kindFlag = cli.StringFlag{
	Name:     "kind",
	Usage:    "the kind of request: send, new-asset, mint-asset, new-nft, update-asset, transfer-ownership or sign-psbt",
	Required: true,
}

var confirmFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "wait",
		Usage: "wait for the flow to settle before returning",
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Usage: "the max time to wait for the flow to settle",
	},
}

// stageFlags are the wallet params of a request and the flags of its
// confirmation.
var stageFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "fee",
		Usage: "the fee rate in SYS per kilobyte",
	},
	&cli.BoolFlag{
		Name:  "rbf",
		Usage: "whether the transaction is replaceable",
	},
}, confirmFlags...)

var tx = cli.Command{
	Name:  "tx",
	Usage: "stage, review and confirm transaction requests",
	Subcommands: []*cli.Command{
		{
			Name:  "stage",
			Usage: "stage a request of the given kind, replacing the previous one",
			Flags: []cli.Flag{
				&kindFlag,
				&cli.StringFlag{
					Name:     "data",
					Usage:    "the request as JSON object",
					Required: true,
				},
			},
			Action: stageAction,
		},
		{
			Name:  "params",
			Usage: "supply fee and rbf of a staged request",
			Flags: []cli.Flag{
				&kindFlag,
				&cli.StringFlag{
					Name:     "fee",
					Usage:    "the fee rate in SYS per kilobyte",
					Required: true,
				},
				&cli.BoolFlag{
					Name:  "rbf",
					Usage: "whether the transaction is replaceable",
				},
			},
			Action: walletParamsAction,
		},
		{
			Name:   "staged",
			Usage:  "list the staged requests",
			Action: stagedAction,
		},
		{
			Name:   "clear",
			Usage:  "drop the staged request of the given kind",
			Flags:  []cli.Flag{&kindFlag},
			Action: clearStagedAction,
		},
		{
			Name:   "confirm",
			Usage:  "sign and broadcast the staged request of the given kind",
			Flags:  append([]cli.Flag{&kindFlag}, confirmFlags...),
			Action: confirmAction,
		},
	},
}

var send = cli.Command{
	Name:  "send",
	Usage: "send SYS or a token from the active account",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "to",
			Usage:    "the receiving address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "the amount to send",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "the guid of the token to send, SYS if not set",
		},
		&cli.StringFlag{
			Name:  "from",
			Usage: "the sending address",
		},
	}, stageFlags...),
	Action: sendAction,
}

var psbtCmd = cli.Command{
	Name:  "psbt",
	Usage: "sign a base64 PSBT with the keys of the active account",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:     "psbt",
			Usage:    "the base64 encoded PSBT",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "broadcast",
			Usage: "finalize and broadcast the signed transaction",
		},
	}, confirmFlags...),
	Action: psbtAction,
}

var flow = cli.Command{
	Name:  "flow",
	Usage: "follow the flows started by confirmed requests",
	Subcommands: []*cli.Command{
		{
			Name:   "info",
			Usage:  "get the state of a flow",
			Flags:  []cli.Flag{&flowIDFlag},
			Action: flowInfoAction,
		},
		{
			Name:   "cancel",
			Usage:  "stop following a flow",
			Flags:  []cli.Flag{&flowIDFlag},
			Action: cancelFlowAction,
		},
	},
}

var flowIDFlag = cli.StringFlag{
	Name:     "id",
	Usage:    "the id of the flow",
	Required: true,
}

func stageAction(ctx *cli.Context) error {
	data := map[string]interface{}{}
	if err := json.Unmarshal([]byte(ctx.String("data")), &data); err != nil {
		return fmt.Errorf("invalid request data: %w", err)
	}
	return postAndPrint(txPath(ctx.String("kind"), "/stage"), data)
}

func walletParamsAction(ctx *cli.Context) error {
	return postAndPrint(txPath(ctx.String("kind"), "/wallet-params"), map[string]interface{}{
		"fee": ctx.String("fee"),
		"rbf": ctx.Bool("rbf"),
	})
}

func stagedAction(ctx *cli.Context) error {
	return getAndPrint("/v1/tx/staged")
}

func clearStagedAction(ctx *cli.Context) error {
	return deleteAndPrint(txPath(ctx.String("kind"), ""))
}

func confirmAction(ctx *cli.Context) error {
	return confirm(ctx, ctx.String("kind"))
}

func sendAction(ctx *cli.Context) error {
	token := ctx.String("token")
	req := map[string]interface{}{
		"toAddress": ctx.String("to"),
		"amount":    ctx.String("amount"),
		"isToken":   token != "",
	}
	if token != "" {
		req["token"] = token
	}
	if from := ctx.String("from"); from != "" {
		req["fromAddress"] = from
	}
	return stageAndConfirm(ctx, "send", req)
}

func psbtAction(ctx *cli.Context) error {
	return stageAndConfirm(ctx, "sign-psbt", map[string]interface{}{
		"psbt":      ctx.String("psbt"),
		"broadcast": ctx.Bool("broadcast"),
	})
}

// stageAndConfirm stages req, supplies the wallet params when a fee is given
// and confirms the request.
func stageAndConfirm(
	ctx *cli.Context, kind string, req map[string]interface{},
) error {
	if _, err := post(txPath(kind, "/stage"), req); err != nil {
		return err
	}
	if fee := ctx.String("fee"); fee != "" {
		if _, err := post(txPath(kind, "/wallet-params"), map[string]interface{}{
			"fee": fee,
			"rbf": ctx.Bool("rbf"),
		}); err != nil {
			return err
		}
	}
	return confirm(ctx, kind)
}

func confirm(ctx *cli.Context, kind string) error {
	query := url.Values{}
	if ctx.Bool("wait") {
		query.Set("wait", "true")
	}
	if timeout := ctx.Duration("timeout"); timeout > 0 {
		query.Set("timeout", timeout.String())
	}
	path := txPath(kind, "/confirm")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return postAndPrint(path, nil)
}

func txPath(kind, suffix string) string {
	return "/v1/tx/" + url.PathEscape(kind) + suffix
}

func flowInfoAction(ctx *cli.Context) error {
	return getAndPrint("/v1/flows/" + url.PathEscape(ctx.String("id")))
}

func cancelFlowAction(ctx *cli.Context) error {
	return postAndPrint("/v1/flows/"+url.PathEscape(ctx.String("id"))+"/cancel", nil)
}
