package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"

	"github.com/MDValleLogic/netrunner-dashboard/internal/client"
)

// commandTimeout bounds each API call issued from the shell.
const commandTimeout = 30 * time.Second

type shell struct {
	serverURL string
	api       *client.Client
}

func newShell(serverURL, token string) *shell {
	return &shell{
		serverURL: serverURL,
		api:       client.New(serverURL, token, client.Options{}),
	}
}

var commands = []prompt.Suggest{
	{Text: "devices", Description: "List devices with liveness"},
	{Text: "register", Description: "register <name> - issue a new device identity"},
	{Text: "claim", Description: "claim <serial> - bind a device to your tenant"},
	{Text: "config", Description: "config <device-id> <interval-sec> <url...> - set probe config"},
	{Text: "recent", Description: "recent <device-id> [limit] - newest measurements"},
	{Text: "series", Description: "series <device-id> [window-min] [bucket-sec] - bucketed latency"},
	{Text: "archive", Description: "archive <secret> - trigger the archival run"},
	{Text: "help", Description: "Show commands"},
	{Text: "exit", Description: "Quit"},
}

func (s *shell) complete(d prompt.Document) []prompt.Suggest {
	if d.FindStartOfPreviousWord() != 0 {
		return nil
	}
	return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
}

func (s *shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch fields[0] {
	case "devices":
		err = s.listDevices(ctx)
	case "register":
		err = s.register(ctx, fields[1:])
	case "claim":
		err = s.claim(ctx, fields[1:])
	case "config":
		err = s.saveConfig(ctx, fields[1:])
	case "recent":
		err = s.recent(ctx, fields[1:])
	case "series":
		err = s.series(ctx, fields[1:])
	case "archive":
		err = s.archive(ctx, fields[1:])
	case "help":
		for _, c := range commands {
			fmt.Printf("  %-10s %s\n", c.Text, c.Description)
		}
	case "exit", "quit":
		os.Exit(0)
	default:
		fmt.Printf("unknown command %q (try 'help')\n", fields[0])
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func (s *shell) listDevices(ctx context.Context) error {
	devices, err := s.api.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no devices")
		return nil
	}
	fmt.Printf("%-40s %-12s %-20s %-8s %s\n", "DEVICE", "SERIAL", "NAME", "ONLINE", "LAST SEEN")
	for _, d := range devices {
		fmt.Printf("%-40s %-12s %-20s %-8t %s\n",
			d.DeviceID, d.Serial, d.Name, d.Online, d.LastSeen)
	}
	return nil
}

func (s *shell) register(ctx context.Context, args []string) error {
	name := "NetRunner"
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}
	reg, err := s.api.RegisterDevice(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("device_id: %s\n", reg.DeviceID)
	fmt.Printf("serial:    %s\n", reg.Serial)
	fmt.Printf("secret:    %s\n", reg.DeviceSecret)
	fmt.Println("The secret is shown once; store it on the device now.")
	return nil
}

func (s *shell) claim(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: claim <serial>")
	}
	res, err := s.api.ClaimDevice(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s (%s) into tenant %s\n", res.DeviceID, res.Serial, res.TenantID)
	return nil
}

func (s *shell) saveConfig(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: config <device-id> <interval-sec> <url...>")
	}
	interval, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if err := s.api.SaveDeviceConfig(ctx, args[0], interval, args[2:]); err != nil {
		return err
	}
	fmt.Printf("config saved for %s (%d urls)\n", args[0], len(args[2:]))
	return nil
}

func (s *shell) recent(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: recent <device-id> [limit]")
	}
	limit := 0
	if len(args) > 1 {
		limit, _ = strconv.Atoi(args[1])
	}
	rows, err := s.api.RecentMeasurements(ctx, args[0], limit)
	if err != nil {
		return err
	}
	for _, m := range rows {
		latency := "-"
		if m.LatencyMs != nil {
			latency = fmt.Sprintf("%.1fms", *m.LatencyMs)
		}
		status := "ok"
		if !m.Success {
			status = "fail"
			if m.Error != nil {
				status = "fail: " + *m.Error
			}
		}
		fmt.Printf("%s  %-40s %8s  %s\n", m.TS, m.URL, latency, status)
	}
	return nil
}

func (s *shell) series(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: series <device-id> [window-min] [bucket-sec]")
	}
	var p client.TimeseriesParams
	if len(args) > 1 {
		p.WindowMinutes, _ = strconv.Atoi(args[1])
	}
	if len(args) > 2 {
		p.BucketSeconds, _ = strconv.Atoi(args[2])
	}
	ts, err := s.api.GetTimeseries(ctx, args[0], p)
	if err != nil {
		return err
	}
	fmt.Printf("window=%dm bucket=%ds urls=%d\n",
		ts.WindowMinutes, ts.BucketSeconds, len(ts.URLs))
	for _, url := range ts.URLs {
		fmt.Printf("%s\n", url)
		for _, pt := range ts.Series[url] {
			avg := "-"
			if pt.AvgLatencyMs != nil {
				avg = fmt.Sprintf("%.1fms", *pt.AvgLatencyMs)
			}
			p95 := "-"
			if pt.P95Ms != nil {
				p95 = fmt.Sprintf("%.1fms", *pt.P95Ms)
			}
			fmt.Printf("  %s avg=%-8s p95=%-8s n=%d ok=%d fail=%d\n",
				pt.TS, avg, p95, pt.SampleCount, pt.SuccessCount, pt.FailCount)
		}
	}
	return nil
}

func (s *shell) archive(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: archive <secret>")
	}
	res, err := client.TriggerArchive(ctx, s.serverURL, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("archived %d rows (cutoff %s)\n", res.Archived, res.Cutoff)
	if res.ExportFile != "" {
		fmt.Printf("export: %s\n", res.ExportFile)
	}
	return nil
}
