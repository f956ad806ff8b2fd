package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
)

var rpcFlag = cli.StringFlag{
	Name:  rpcServerKey,
	Usage: "palid daemon address host:port",
	Value: "localhost:9500",
}

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the pali CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&rpcFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key + ": " + state[key])
	}

	return nil
}

func configInitAction(ctx *cli.Context) error {
	return setState(map[string]string{
		rpcServerKey: ctx.String(rpcServerKey),
	})
}

func configSetAction(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := ctx.Args().Get(0)
	value := ctx.Args().Get(1)

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, value)
	return nil
}
