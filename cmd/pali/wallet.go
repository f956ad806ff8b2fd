package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

var passwordFlag = cli.StringFlag{
	Name:     "password",
	Usage:    "the password used to encrypt the mnemonic",
	Required: true,
}

var genseed = cli.Command{
	Name:   "genseed",
	Usage:  "generate a new mnemonic seed",
	Action: genSeedAction,
}

var createwallet = cli.Command{
	Name:  "create",
	Usage: "create the wallet from a new mnemonic",
	Flags: []cli.Flag{
		&passwordFlag,
		&cli.StringFlag{
			Name:     "seed",
			Usage:    "the mnemonic seed returned by genseed",
			Required: true,
		},
	},
	Action: createWalletAction,
}

var importwallet = cli.Command{
	Name:  "import",
	Usage: "restore the wallet and its accounts from an existing mnemonic",
	Flags: []cli.Flag{
		&passwordFlag,
		&cli.StringFlag{
			Name:     "seed",
			Usage:    "the mnemonic seed of the wallet to restore",
			Required: true,
		},
	},
	Action: importWalletAction,
}

var unlockwallet = cli.Command{
	Name:  "unlock",
	Usage: "unlock the daemon wallet with the given password",
	Flags: []cli.Flag{
		&passwordFlag,
	},
	Action: unlockWalletAction,
}

var lockwallet = cli.Command{
	Name:   "lock",
	Usage:  "lock the daemon wallet",
	Action: lockWalletAction,
}

var changepassword = cli.Command{
	Name:  "changepassword",
	Usage: "change the password of the wallet, which must be locked",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "current_password",
			Usage:    "the current password",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "new_password",
			Usage:    "the new password",
			Required: true,
		},
	},
	Action: changePasswordAction,
}

var deletewallet = cli.Command{
	Name:  "delete",
	Usage: "delete the wallet and every account from the daemon",
	Flags: []cli.Flag{
		&passwordFlag,
	},
	Action: deleteWalletAction,
}

var status = cli.Command{
	Name:   "status",
	Usage:  "get info about the status of the wallet",
	Action: statusAction,
}

func genSeedAction(ctx *cli.Context) error {
	resp, err := post("/v1/wallet/genseed", nil)
	if err != nil {
		return err
	}

	reply := struct {
		Mnemonic []string `json:"mnemonic"`
	}{}
	if err := json.Unmarshal([]byte(resp), &reply); err != nil {
		return fmt.Errorf("unable to decode response: %w", err)
	}

	fmt.Println(strings.Join(reply.Mnemonic, " "))
	return nil
}

func createWalletAction(ctx *cli.Context) error {
	if err := postAndPrint("/v1/wallet/create", mnemonicBody(ctx)); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet is initialized. You can unlock")
	return nil
}

func importWalletAction(ctx *cli.Context) error {
	if err := postAndPrint("/v1/wallet/import", mnemonicBody(ctx)); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet is restored. You can unlock")
	return nil
}

func mnemonicBody(ctx *cli.Context) map[string]interface{} {
	return map[string]interface{}{
		"mnemonic": strings.Fields(ctx.String("seed")),
		"password": ctx.String("password"),
	}
}

func unlockWalletAction(ctx *cli.Context) error {
	if _, err := post("/v1/wallet/unlock", map[string]string{
		"password": ctx.String("password"),
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet is unlocked")
	return nil
}

func lockWalletAction(ctx *cli.Context) error {
	if _, err := post("/v1/wallet/lock", nil); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet is locked")
	return nil
}

func changePasswordAction(ctx *cli.Context) error {
	current := ctx.String("current_password")
	next := ctx.String("new_password")
	if current == next {
		return errors.New("new password must differ from the current one")
	}

	if _, err := post("/v1/wallet/changepassword", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Password changed")
	return nil
}

func deleteWalletAction(ctx *cli.Context) error {
	if _, err := post("/v1/wallet/delete", map[string]string{
		"password": ctx.String("password"),
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Wallet deleted")
	return nil
}

func statusAction(ctx *cli.Context) error {
	return getAndPrint("/v1/wallet/status")
}
