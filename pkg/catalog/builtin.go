package catalog

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/apdulab/apdulab/pkg/transport"
)

// Default returns the built-in command set.
func Default() *Catalog {
	return New(
		sendAPDU(),
		getAppAndVersion(),
		quitApp(),
		getBatteryStatus(),
		listApps(),
		openApp(),
	)
}

func sendAPDU() Command {
	return Command{
		ID:    "send-apdu",
		Label: "Send raw APDU",
		Help: "# Send raw APDU\n\nSends the given bytes verbatim and prints the " +
			"full reply, status word included.\n\nExample: `b0 01 00 00 00`.",
		Form: []Field{{
			Key:         "apdu",
			Label:       "APDU",
			Placeholder: "e0 01 00 00 00",
			Validate:    ValidateHex,
		}},
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			apdu, err := ParseHex(req.Values[0])
			if err != nil {
				return err
			}
			reply, err := req.Handle.Exchange(ctx, apdu)
			if err != nil {
				return err
			}
			emit(Result{Text: "reply " + hex.EncodeToString(reply), Data: reply})
			return nil
		},
	}
}

func getAppAndVersion() Command {
	return Command{
		ID:    "get-app-and-version",
		Label: "Get app and version",
		Help: "# Get app and version\n\nAsks the device which application is " +
			"currently running and its version.",
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			av, err := queryAppVersion(ctx, req.Handle)
			if err != nil {
				return err
			}
			emit(Result{Text: fmt.Sprintf("%s %s", av.Name, av.Version), Data: av})
			return nil
		},
	}
}

func quitApp() Command {
	return Command{
		ID:    "quit-app",
		Label: "Quit current app",
		Help:  "# Quit current app\n\nReturns the device to the dashboard.",
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			if _, err := exchange(ctx, req.Handle, []byte{0xB0, 0xA7, 0x00, 0x00, 0x00}); err != nil {
				return err
			}
			emit(Result{Text: "app closed"})
			return nil
		},
	}
}

// batteryProbes are the per-type battery status queries, streamed one result
// each.
var batteryProbes = []struct {
	p2    byte
	label string
}{
	{0x00, "voltage"},
	{0x01, "current"},
	{0x02, "temperature"},
	{0x03, "charge pending"},
	{0x04, "flags"},
}

func getBatteryStatus() Command {
	return Command{
		ID:    "get-battery-status",
		Label: "Get battery status",
		Help: "# Get battery status\n\nStreams one result per battery status " +
			"type: voltage, current, temperature, charge pending and flags.",
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			for _, probe := range batteryProbes {
				payload, err := exchange(ctx, req.Handle, []byte{0xE0, 0x10, 0x00, probe.p2, 0x00})
				if err != nil {
					return err
				}
				emit(Result{
					Text: fmt.Sprintf("%s: %s", probe.label, hex.EncodeToString(payload)),
					Data: payload,
				})
			}
			return nil
		},
	}
}

// resolveAppAndVersion gates dashboard-only commands: it fails when an
// application other than the dashboard is running.
func resolveAppAndVersion(ctx context.Context, _ Command, h transport.Handle) (any, error) {
	av, err := queryAppVersion(ctx, h)
	if err != nil {
		return nil, err
	}
	if av.Name != "BOLOS" {
		return nil, fmt.Errorf("device is running %q, not the dashboard", av.Name)
	}
	return av, nil
}

// resolveAppList enumerates installed application names.
func resolveAppList(ctx context.Context, _ Command, h transport.Handle) (any, error) {
	var names []string

	apdu := []byte{0xE0, 0xDE, 0x00, 0x00, 0x00}
	for {
		payload, err := exchange(ctx, h, apdu)
		if err != nil {
			return nil, err
		}
		if len(payload) == 0 {
			return names, nil
		}
		chunk, err := parseAppNames(payload)
		if err != nil {
			return nil, err
		}
		names = append(names, chunk...)
		apdu = []byte{0xE0, 0xDF, 0x00, 0x00, 0x00}
	}
}

func listApps() Command {
	return Command{
		ID:    "list-apps",
		Label: "List installed apps",
		Help: "# List installed apps\n\nEnumerates installed applications in " +
			"chunks, one result per chunk. Requires the dashboard.",
		Deps: map[string]Resolver{
			"appAndVersion": resolveAppAndVersion,
		},
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			apdu := []byte{0xE0, 0xDE, 0x00, 0x00, 0x00}
			for {
				payload, err := exchange(ctx, req.Handle, apdu)
				if err != nil {
					return err
				}
				if len(payload) == 0 {
					return nil
				}
				names, err := parseAppNames(payload)
				if err != nil {
					return err
				}
				emit(Result{Text: fmt.Sprintf("%v", names), Data: names})
				apdu = []byte{0xE0, 0xDF, 0x00, 0x00, 0x00}
			}
		},
	}
}

func openApp() Command {
	return Command{
		ID:    "open-app",
		Label: "Open app",
		Help: "# Open app\n\nOpens the named application. The name must match " +
			"one of the installed apps; the installed list is resolved before " +
			"the command becomes runnable.",
		Form: []Field{{
			Key:         "name",
			Label:       "App name",
			Placeholder: "Bitcoin",
		}},
		Deps: map[string]Resolver{
			"appList": resolveAppList,
		},
		Run: func(ctx context.Context, req Request, emit func(Result)) error {
			name := req.Values[0]

			installed, _ := req.Deps["appList"].([]string)
			found := false
			for _, n := range installed {
				if n == name {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("app %q is not installed", name)
			}

			apdu := append([]byte{0xE0, 0xD8, 0x00, 0x00, byte(len(name))}, name...)
			if _, err := exchange(ctx, req.Handle, apdu); err != nil {
				return err
			}
			emit(Result{Text: "opened " + name})
			return nil
		},
	}
}
