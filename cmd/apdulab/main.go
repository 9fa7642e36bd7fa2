// Apdulab is an interactive console for debugging APDU-speaking hardware
// devices. It opens a transport to a device (WebUSB, WebHID or WebBLE via a
// WebSocket bridge, or a TCP emulator), lets the operator pick and run
// protocol commands from a catalog, and shows every command result, raw
// frame and network diagnostic in one ordered, filterable log.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "apdulab.yaml", "path to configuration file (defaults used if missing)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. If the file does not
// exist it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
