package main

import (
	"net/http"
	"net/url"

	"github.com/urfave/cli/v2"
)

var contactIDFlag = cli.StringFlag{
	Name:     "id",
	Usage:    "the id of the contact",
	Required: true,
}

var contactFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "label",
		Usage:    "the label of the contact",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "address",
		Usage:    "the address of the contact",
		Required: true,
	},
	&cli.StringFlag{
		Name:  "network",
		Usage: "the network of the address, the active one if not set",
	},
}

var contact = cli.Command{
	Name:   "contact",
	Usage:  "list the contacts of the address book",
	Action: listContactsAction,
	Subcommands: []*cli.Command{
		{
			Name:   "add",
			Usage:  "add a contact to the address book",
			Flags:  contactFlags,
			Action: addContactAction,
		},
		{
			Name:   "info",
			Usage:  "get the details of a contact",
			Flags:  []cli.Flag{&contactIDFlag},
			Action: contactInfoAction,
		},
		{
			Name:   "update",
			Usage:  "change label and address of a contact",
			Flags:  append([]cli.Flag{&contactIDFlag}, contactFlags...),
			Action: updateContactAction,
		},
		{
			Name:   "remove",
			Usage:  "remove a contact from the address book",
			Flags:  []cli.Flag{&contactIDFlag},
			Action: removeContactAction,
		},
	},
}

func contactPath(ctx *cli.Context) string {
	return "/v1/contacts/" + url.PathEscape(ctx.String("id"))
}

func contactBody(ctx *cli.Context) map[string]string {
	return map[string]string{
		"label":   ctx.String("label"),
		"address": ctx.String("address"),
		"network": ctx.String("network"),
	}
}

func listContactsAction(ctx *cli.Context) error {
	return getAndPrint("/v1/contacts")
}

func addContactAction(ctx *cli.Context) error {
	return postAndPrint("/v1/contacts", contactBody(ctx))
}

func contactInfoAction(ctx *cli.Context) error {
	return getAndPrint(contactPath(ctx))
}

func updateContactAction(ctx *cli.Context) error {
	resp, err := callDaemon(http.MethodPut, contactPath(ctx), contactBody(ctx))
	if err != nil {
		return err
	}
	printRespJSON(resp)
	return nil
}

func removeContactAction(ctx *cli.Context) error {
	return deleteAndPrint(contactPath(ctx))
}
