package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/ambridge/internal/core/model"
	"github.com/agenthands/ambridge/internal/core/reconcile"
)

// promptApprover asks the operator about each merge candidate. Anything but
// "y" or "yes" declines; end of input stops the loop.
func promptApprover(in io.Reader, out io.Writer) reconcile.ApproveFunc {
	reader := bufio.NewReader(in)
	n := 0
	return func(ctx context.Context, c model.MergeCandidate) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		n++
		fmt.Fprintf(out, "\n--- Match %d ---\n", n)
		fmt.Fprintf(out, "PREVIOUS SCENE (%s): %s\n", c.TargetID, c.TargetText)
		fmt.Fprintf(out, "EMPTY SCENE    (%s): %s\n", c.EmptyID, c.EmptyText)
		fmt.Fprintf(out, "Merge %s into %s? (y/n): ", c.EmptyID, c.TargetID)

		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return false, fmt.Errorf("read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			fmt.Fprintf(out, "Merging scene %s.\n", c.EmptyID)
			return true, nil
		default:
			fmt.Fprintln(out, "Skipped.")
			return false, nil
		}
	}
}
