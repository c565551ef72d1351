package metrics

import (
	"fmt"
	"io"
	"maps"
	"slices"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

func PrintResults(w io.Writer, result loadtesttypes.RunResult) {
	fmt.Fprintln(w, "\n=== Deploy Run Results ===")

	if result.Error != "" {
		fmt.Fprintf(w, "\nRun Error: %s\n", result.Error)
	}

	fmt.Fprintln(w, "\n🎯 Overall Statistics:")
	fmt.Fprintf(w, "Total Transactions: %d\n", result.Overall.TotalTransactions)
	fmt.Fprintf(w, "Successful Transactions: %d\n", result.Overall.SuccessfulTransactions)
	fmt.Fprintf(w, "Failed Transactions: %d\n", result.Overall.FailedTransactions)
	fmt.Fprintf(w, "  Broadcast Rejected: %d\n", result.Overall.BroadcastFailures)
	fmt.Fprintf(w, "  Network Errors: %d\n", result.Overall.NetworkFailures)
	fmt.Fprintf(w, "  Confirmation Timeouts: %d\n", result.Overall.Timeouts)
	fmt.Fprintf(w, "  Reverted: %d\n", result.Overall.Reverts)
	fmt.Fprintf(w, "Total Gas Used: %d\n", result.Overall.TotalGasUsed)
	fmt.Fprintf(w, "Average Gas Per Transaction: %d\n", result.Overall.AvgGasPerTransaction)
	fmt.Fprintf(w, "Runtime: %s\n", result.Overall.Runtime)

	fmt.Fprintln(w, "\n📊 Message Type Statistics:")
	for _, msgType := range slices.Sorted(maps.Keys(result.ByMessage)) {
		stats := result.ByMessage[msgType]
		fmt.Fprintf(w, "\n%s:\n", msgType)
		fmt.Fprintf(w, "  Total: %d\n", stats.Total)
		fmt.Fprintf(w, "  Successful: %d\n", stats.Successful)
		fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	}

	fmt.Fprintln(w, "\n📦 Deployed Contracts:")
	if len(result.Contracts) == 0 {
		fmt.Fprintln(w, "none")
	}
	for _, addr := range result.Contracts {
		fmt.Fprintln(w, addr)
	}
}
