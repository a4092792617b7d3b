package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"printdrop/internal/config"
	"printdrop/internal/l10n"
)

// stdinConfirmer asks on the terminal whether a file should be printed.
// When the daemon runs without a terminal there is nobody to ask, so
// prompt-mode rules resolve to "no".
type stdinConfirmer struct {
	catalog *l10n.Catalog
	reader  *bufio.Reader
	isTTY   bool
}

func newStdinConfirmer(cfg *config.Config) *stdinConfirmer {
	return &stdinConfirmer{
		catalog: l10n.NewCatalog(cfg.Language),
		reader:  bufio.NewReader(os.Stdin),
		isTTY:   isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

func (c *stdinConfirmer) Confirm(ctx context.Context, filename string) (bool, error) {
	if !c.isTTY {
		return false, nil
	}
	fmt.Printf("%s [y/N] ", c.catalog.Get("confirm.print.question", filename))
	answer, err := c.reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes" || answer == "j" || answer == "ja", nil
}
