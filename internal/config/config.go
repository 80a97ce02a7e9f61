// Package config validates the CLI's positional arguments into a
// Protocol and cache Geometry, or a descriptive Error.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joeycumines/go-cachesim/internal/addr"
	"github.com/joeycumines/go-cachesim/internal/protocol"
)

// Error is returned for bad CLI arguments or an impossible cache
// geometry. It wraps the underlying validation failure.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Config is the fully-validated run configuration.
type Config struct {
	Protocol protocol.Protocol
	FileBase string
	Geometry addr.Geometry
}

// Parse validates the five positional command-line arguments:
// protocol, fileBase, cacheSize, associativity, blockSize.
func Parse(protocolName, fileBase, cacheSize, associativity, blockSize string) (Config, error) {
	p, err := parseProtocol(protocolName)
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(fileBase) == "" {
		return Config{}, &Error{Msg: "fileBase must not be empty"}
	}
	size, err := parseInt("cacheSize", cacheSize)
	if err != nil {
		return Config{}, err
	}
	assoc, err := parseInt("associativity", associativity)
	if err != nil {
		return Config{}, err
	}
	block, err := parseInt("blockSize", blockSize)
	if err != nil {
		return Config{}, err
	}
	g, err := addr.NewDecoder(addr.Geometry{Size: size, Associativity: assoc, BlockSize: block})
	if err != nil {
		return Config{}, &Error{Msg: "invalid cache geometry", Err: err}
	}
	return Config{Protocol: p, FileBase: fileBase, Geometry: g.Geometry()}, nil
}

func parseProtocol(name string) (protocol.Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "MESI":
		return protocol.MESI{}, nil
	case "DRAGON":
		return protocol.Dragon{}, nil
	default:
		return nil, &Error{Msg: fmt.Sprintf("unknown protocol %q (want MESI or Dragon)", name)}
	}
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &Error{Msg: fmt.Sprintf("%s must be an integer", field), Err: err}
	}
	return n, nil
}
