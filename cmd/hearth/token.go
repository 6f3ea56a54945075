package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/nerrad567/hearth/internal/auth"
	"github.com/nerrad567/hearth/internal/infrastructure/config"
)

// runToken implements "hearth token [-ttl 24h] <user-id>". It prints a
// development bearer token signed with the configured JWT secret.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	ttl := fs.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: hearth token [-ttl 24h] <user-id>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(fs.Arg(0), cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
