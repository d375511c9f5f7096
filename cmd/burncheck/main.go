// burncheck prints the current registration burn cost for a subnet and
// exits. Useful for picking a ceiling before starting regsniper.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/chain"
)

func main() {
	netuid := pflag.Uint16("netuid", 0, "target subnet")
	endpoint := pflag.String("chain-endpoint", "ws://127.0.0.1:9944", "substrate websocket endpoint")
	pflag.Parse()

	client, err := chain.New(chain.Config{Endpoint: *endpoint, Netuid: *netuid}, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	cost, err := client.BurnCost(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "read burn cost: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("netuid:    %d\n", *netuid)
	fmt.Printf("burn cost: %d rao\n", cost)
	fmt.Printf("           %s tao\n", chain.FormatTAO(cost))
}
