package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pali-wallet/palid/pkg/httputil"
	"github.com/urfave/cli/v2"
)

const rpcServerKey = "rpcserver"

var (
	paliDataDir = btcutil.AppDataDir("pali-cli", false)
	statePath   = filepath.Join(paliDataDir, "state.json")
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "pali CLI"
	app.Usage = "Command line interface for the palid wallet daemon"
	app.Commands = append(
		app.Commands,
		&config,
		&genseed,
		&createwallet,
		&importwallet,
		&unlockwallet,
		&lockwallet,
		&changepassword,
		&deletewallet,
		&status,
		&account,
		&network,
		&checkaddress,
		&price,
		&send,
		&psbtCmd,
		&nft,
		&tx,
		&flow,
		&token,
		&contact,
		&connection,
		&webhook,
	)
	return app
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		return err
	}

	currentData := map[string]string{}
	if _, err := os.Stat(statePath); err == nil {
		if currentData, err = getState(); err != nil {
			return err
		}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func getDaemonURL() (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	address, ok := state[rpcServerKey]
	if !ok {
		return "", errors.New("set rpcserver with `config set rpcserver`")
	}
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return strings.TrimSuffix(address, "/"), nil
}

// callDaemon sends body, if any, as JSON to the given path of the daemon API
// and returns the response body. Failed requests are turned into errors
// carrying the message returned by the daemon.
func callDaemon(method, path string, body interface{}) (string, error) {
	baseURL, err := getDaemonURL()
	if err != nil {
		return "", err
	}

	var payload string
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		payload = string(buf)
	}

	status, resp, err := httputil.NewHTTPRequest(
		context.Background(), method, baseURL+path, payload,
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return "", fmt.Errorf("unable to connect to daemon: %w", err)
	}
	if status >= http.StatusBadRequest {
		reply := struct {
			Message string `json:"message"`
		}{}
		if err := json.Unmarshal([]byte(resp), &reply); err == nil && reply.Message != "" {
			return "", errors.New(reply.Message)
		}
		return "", fmt.Errorf("daemon replied with status %d", status)
	}
	return resp, nil
}

func get(path string) (string, error) {
	return callDaemon(http.MethodGet, path, nil)
}

func post(path string, body interface{}) (string, error) {
	return callDaemon(http.MethodPost, path, body)
}

// printRespJSON prints the indented JSON response of the daemon.
func printRespJSON(resp string) {
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, []byte(resp), "", "\t"); err != nil {
		fmt.Println(strings.TrimSpace(resp))
		return
	}
	fmt.Println(buf.String())
}

// getAndPrint, postAndPrint and deleteAndPrint are the actions of the commands that just
// forward a request to the daemon.
func getAndPrint(path string) error {
	resp, err := get(path)
	if err != nil {
		return err
	}
	printRespJSON(resp)
	return nil
}

func postAndPrint(path string, body interface{}) error {
	resp, err := post(path, body)
	if err != nil {
		return err
	}
	printRespJSON(resp)
	return nil
}

func deleteAndPrint(path string) error {
	resp, err := callDaemon(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	printRespJSON(resp)
	return nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[pali] %v\n", err)
	}
	os.Exit(1)
}
