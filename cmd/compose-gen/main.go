package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/radieske/lottery-agency-poc/internal/compose"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "compose-gen <output-file> <clients>",
		Short:        "Generate a docker-compose file with the lottery server and N agency clients",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid clients %q: %w", args[1], err)
			}

			f, err := compose.Generate(clients)
			if err != nil {
				return err
			}

			out, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("could not open %s: %w", args[0], err)
			}
			if err := compose.Write(out, f); err != nil {
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d clients\n", args[0], clients)
			return err
		},
	}
}
