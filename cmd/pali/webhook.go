package main

import (
	"net/url"

	"github.com/urfave/cli/v2"
)

const topicUsage = "the event triggering the webhook: TX_UPDATED, TOKENS_UPDATED, " +
	"WALLET_UPDATED, FLOW_UPDATED, ACCOUNT_CONNECTED, WALLET_LOCKED, " +
	"WALLET_UNLOCKED, NETWORK_CHANGED or * for any event"

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "list all webhooks, optionally filtered by topic",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "topic",
			Usage: topicUsage,
		},
	},
	Action: listWebhooksAction,
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "add a (secured) webhook endpoint called whenever a target event occurs",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the webhook endpoint to be called whenever the target event occurs",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "topic",
					Usage:    topicUsage,
					Required: true,
				},
				&cli.StringFlag{
					Name: "secret",
					Usage: "the eventual secret to use to generate an OAuth token for " +
						"authenticating requests to the webhook endpoint",
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:  "remove",
			Usage: "remove some webhook by its id",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Usage:    "the id of the webhook to remove",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "topic",
					Usage: topicUsage,
				},
			},
			Action: removeWebhookAction,
		},
	},
}

func listWebhooksAction(ctx *cli.Context) error {
	path := "/v1/webhooks"
	if topic := ctx.String("topic"); topic != "" {
		path += "?topic=" + url.QueryEscape(topic)
	}
	return getAndPrint(path)
}

func addWebhookAction(ctx *cli.Context) error {
	return postAndPrint("/v1/webhooks", map[string]string{
		"endpoint": ctx.String("endpoint"),
		"topic":    ctx.String("topic"),
		"secret":   ctx.String("secret"),
	})
}

func removeWebhookAction(ctx *cli.Context) error {
	path := "/v1/webhooks/" + url.PathEscape(ctx.String("id"))
	if topic := ctx.String("topic"); topic != "" {
		path += "?topic=" + url.QueryEscape(topic)
	}
	return deleteAndPrint(path)
}
