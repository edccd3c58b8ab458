// Command aquarisk runs Monte Carlo risk simulations of aquaculture sites.
package main

import (
	"context"
	"fmt"
	"os"

	"aquaculture-risk/internal/cli"
	"aquaculture-risk/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(logger)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
