package catalog

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/apdulab/apdulab/pkg/transport"
)

// swOK is the status word a device appends to every successful reply.
const swOK = 0x9000

// ParseHex decodes a human-typed hex string, tolerating spaces and an
// optional 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, fmt.Errorf("empty hex string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// ValidateHex is a form validator for APDU input fields.
func ValidateHex(s string) error {
	_, err := ParseHex(s)
	return err
}

// exchange sends an APDU and returns the reply payload with the status word
// stripped. A status other than 9000 is an error.
func exchange(ctx context.Context, h transport.Handle, apdu []byte) ([]byte, error) {
	reply, err := h.Exchange(ctx, apdu)
	if err != nil {
		return nil, err
	}
	if len(reply) < 2 {
		return nil, fmt.Errorf("short reply: %d bytes", len(reply))
	}

	sw := binary.BigEndian.Uint16(reply[len(reply)-2:])
	if sw != swOK {
		return nil, fmt.Errorf("device status %04x", sw)
	}

	return reply[:len(reply)-2], nil
}

// AppVersion is the parsed reply of the app-and-version query.
type AppVersion struct {
	Name    string
	Version string
}

// queryAppVersion asks the device which application is running.
func queryAppVersion(ctx context.Context, h transport.Handle) (AppVersion, error) {
	payload, err := exchange(ctx, h, []byte{0xB0, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		return AppVersion{}, err
	}

	// format(1) nameLen(1) name verLen(1) version
	if len(payload) < 2 {
		return AppVersion{}, fmt.Errorf("malformed app-and-version reply")
	}
	p := payload[1:]

	name, p, err := readLV(p)
	if err != nil {
		return AppVersion{}, fmt.Errorf("malformed app name: %w", err)
	}
	version, _, err := readLV(p)
	if err != nil {
		return AppVersion{}, fmt.Errorf("malformed app version: %w", err)
	}

	return AppVersion{Name: string(name), Version: string(version)}, nil
}

// readLV reads one length-prefixed value and returns it with the rest.
func readLV(p []byte) ([]byte, []byte, error) {
	if len(p) < 1 {
		return nil, nil, fmt.Errorf("truncated")
	}
	n := int(p[0])
	if len(p) < 1+n {
		return nil, nil, fmt.Errorf("truncated value of %d bytes", n)
	}
	return p[1 : 1+n], p[1+n:], nil
}

// parseAppNames decodes a listing chunk: a sequence of length-prefixed names.
func parseAppNames(payload []byte) ([]string, error) {
	var names []string
	for len(payload) > 0 {
		name, rest, err := readLV(payload)
		if err != nil {
			return nil, err
		}
		names = append(names, string(name))
		payload = rest
	}
	return names, nil
}
