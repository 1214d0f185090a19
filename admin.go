package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/util"
)

// accountStore is what the one-shot account commands need from the database.
type accountStore interface {
	CreateAccount(ctx context.Context, npid string) (*domain.Account, error)
	ReadAccountByNpid(ctx context.Context, npid string) (*domain.Account, error)
	CreateToken(ctx context.Context, npid string, token string) error
	DeleteTokens(ctx context.Context, npid string) error
	UpsertTrophies(ctx context.Context, npid string, unlocked, bronze, silver, gold, platinum int64) error
	ReadTrophySummary(ctx context.Context, npid string) (domain.TrophySummary, error)
}

// adminCommand is a one-shot command given on the command line. The server
// does not start when one is set.
type adminCommand struct {
	createAccount string
	issueToken    string
	revokeTokens  string
	setTrophies   string

	unlocked, bronze, silver, gold, platinum int64
}

func registerAdminFlags(fs *flag.FlagSet) *adminCommand {
	cmd := &adminCommand{}
	fs.StringVar(&cmd.createAccount, "create-account", "", "register an npid, print a bearer token for it and exit")
	fs.StringVar(&cmd.issueToken, "issue-token", "", "print a new bearer token for an existing npid and exit")
	fs.StringVar(&cmd.revokeTokens, "revoke-tokens", "", "delete every bearer token of an npid and exit")
	fs.StringVar(&cmd.setTrophies, "set-trophies", "", "store the trophy counts given by -unlocked, -bronze, -silver, -gold, -platinum for an npid and exit")
	fs.Int64Var(&cmd.unlocked, "unlocked", 0, "unlocked trophies for -set-trophies")
	fs.Int64Var(&cmd.bronze, "bronze", 0, "bronze trophies for -set-trophies")
	fs.Int64Var(&cmd.silver, "silver", 0, "silver trophies for -set-trophies")
	fs.Int64Var(&cmd.gold, "gold", 0, "gold trophies for -set-trophies")
	fs.Int64Var(&cmd.platinum, "platinum", 0, "platinum trophies for -set-trophies")
	return cmd
}

func (cmd *adminCommand) set() bool {
	return cmd.createAccount != "" || cmd.issueToken != "" || cmd.revokeTokens != "" || cmd.setTrophies != ""
}

func (cmd *adminCommand) run(ctx context.Context, store accountStore, out io.Writer) error {
	switch {
	case cmd.createAccount != "":
		npid := util.TrimNpid(cmd.createAccount)
		if _, err := store.CreateAccount(ctx, npid); err != nil {
			return err
		}
		return issueToken(ctx, store, npid, out)

	case cmd.issueToken != "":
		npid := util.TrimNpid(cmd.issueToken)
		if err := requireAccount(ctx, store, npid); err != nil {
			return err
		}
		return issueToken(ctx, store, npid, out)

	case cmd.revokeTokens != "":
		npid := util.TrimNpid(cmd.revokeTokens)
		if err := requireAccount(ctx, store, npid); err != nil {
			return err
		}
		if err := store.DeleteTokens(ctx, npid); err != nil {
			return err
		}
		fmt.Fprintf(out, "Revoked all tokens of %s\n", npid)
		return nil

	case cmd.setTrophies != "":
		npid := util.TrimNpid(cmd.setTrophies)
		if err := requireAccount(ctx, store, npid); err != nil {
			return err
		}
		for _, n := range []int64{cmd.unlocked, cmd.bronze, cmd.silver, cmd.gold, cmd.platinum} {
			if n < 0 {
				return fmt.Errorf("trophy counts must not be negative")
			}
		}
		if err := store.UpsertTrophies(ctx, npid, cmd.unlocked, cmd.bronze, cmd.silver, cmd.gold, cmd.platinum); err != nil {
			return err
		}
		summary, err := store.ReadTrophySummary(ctx, npid)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now level %d (%d%%)\n", npid, summary.Level, summary.Progress)
		return nil
	}
	return nil
}

func requireAccount(ctx context.Context, store accountStore, npid string) error {
	if _, err := store.ReadAccountByNpid(ctx, npid); err != nil {
		return fmt.Errorf("%s: %w", npid, err)
	}
	return nil
}

func issueToken(ctx context.Context, store accountStore, npid string, out io.Writer) error {
	token, err := util.GenerateToken()
	if err != nil {
		return err
	}
	if err := store.CreateToken(ctx, npid, token); err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
