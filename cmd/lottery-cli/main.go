package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/urfave/cli/v2"
)

// flags
var (
	urlFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "base url of the lottery server",
		Value:   "http://localhost:8080",
		EnvVars: []string{"LOTTERY_URL"},
	}
	participantFlag = &cli.StringFlag{
		Name:     "participant",
		Usage:    "identifier of the entrant",
		Required: true,
	}
	stakeFlag = &cli.Uint64Flag{
		Name:     "stake",
		Usage:    "stake sent with the entry",
		Required: true,
	}
	requestIDFlag = &cli.Uint64Flag{
		Name:     "request-id",
		Usage:    "randomness request to fulfill",
		Required: true,
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "max number of winners to list",
		Value: 20,
	}
)

// commands
var (
	statusCmd = &cli.Command{
		Name:   "status",
		Usage:  "Show the current round",
		Action: statusAction,
	}
	enterCmd = &cli.Command{
		Name:   "enter",
		Usage:  "Enter the current round",
		Action: enterAction,
		Flags:  []cli.Flag{participantFlag, stakeFlag},
	}
	upkeepCmd = &cli.Command{
		Name:  "upkeep",
		Usage: "Check or perform upkeep",
		Subcommands: append(
			cli.Commands{},
			upkeepCheckCmd,
			upkeepPerformCmd,
		),
	}
	upkeepCheckCmd = &cli.Command{
		Name:   "check",
		Usage:  "Report whether the round can be closed",
		Action: upkeepCheckAction,
	}
	upkeepPerformCmd = &cli.Command{
		Name:   "perform",
		Usage:  "Close the round and request randomness",
		Action: upkeepPerformAction,
	}
	fulfillCmd = &cli.Command{
		Name:   "fulfill",
		Usage:  "Make the local coordinator answer a pending request",
		Action: fulfillAction,
		Flags:  []cli.Flag{requestIDFlag},
	}
	winnersCmd = &cli.Command{
		Name:   "winners",
		Usage:  "List past winners",
		Action: winnersAction,
		Flags:  []cli.Flag{limitFlag},
	}
)

func main() {
	defer logger.Init("lottery-cli", true, false, io.Discard).Close()

	app := cli.NewApp()
	app.Name = "lottery-cli"
	app.Usage = "Operate a lottery server"
	app.Flags = []cli.Flag{urlFlag}
	app.Commands = append(
		app.Commands,
		statusCmd,
		enterCmd,
		upkeepCmd,
		fulfillCmd,
		winnersCmd,
	)

	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func statusAction(ctx *cli.Context) error {
	return get(ctx, "/lottery")
}

func enterAction(ctx *cli.Context) error {
	body := map[string]interface{}{
		"participant": ctx.String(participantFlag.Name),
		"stake":       ctx.Uint64(stakeFlag.Name),
	}
	return post(ctx, "/enter", body)
}

func upkeepCheckAction(ctx *cli.Context) error {
	return get(ctx, "/upkeep")
}

func upkeepPerformAction(ctx *cli.Context) error {
	return post(ctx, "/upkeep", nil)
}

func fulfillAction(ctx *cli.Context) error {
	return post(ctx, fmt.Sprintf("/v1/vrf/local/fulfill/%d", ctx.Uint64(requestIDFlag.Name)), nil)
}

func winnersAction(ctx *cli.Context) error {
	return get(ctx, fmt.Sprintf("/winners?limit=%d", ctx.Int(limitFlag.Name)))
}

func get(ctx *cli.Context, endpoint string) error {
	return do(ctx, http.MethodGet, endpoint, nil)
}

func post(ctx *cli.Context, endpoint string, body interface{}) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(buf)
	}
	return do(ctx, http.MethodPost, endpoint, payload)
}

func do(ctx *cli.Context, method, endpoint string, body io.Reader) error {
	baseURL, err := url.Parse(strings.TrimRight(ctx.String(urlFlag.Name), "/"))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx.Context, method, baseURL.String()+endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	return printJSON(raw)
}

func printJSON(raw []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
