package metrics

import (
	"time"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// ProcessResults aggregates the per-attempt records of a run.
func ProcessResults(records []loadtesttypes.AttemptRecord, contracts []string, startTime, endTime time.Time) loadtesttypes.RunResult {
	msgStats := make(map[loadtesttypes.MsgType]loadtesttypes.TransactionStats)
	overall := loadtesttypes.OverallStats{
		TotalTransactions: len(records),
		StartTime:         startTime,
		EndTime:           endTime,
		Runtime:           endTime.Sub(startTime),
	}

	included := 0
	for _, r := range records {
		stat := msgStats[r.MsgType]
		stat.Total++
		if r.Succeeded {
			stat.Successful++
			overall.SuccessfulTransactions++
		} else {
			stat.Failed++
			overall.FailedTransactions++
		}
		msgStats[r.MsgType] = stat

		switch r.Failure {
		case loadtesttypes.FailureBroadcast:
			overall.BroadcastFailures++
		case loadtesttypes.FailureNetwork:
			overall.NetworkFailures++
		case loadtesttypes.FailureTimeout:
			overall.Timeouts++
		case loadtesttypes.FailureRevert:
			overall.Reverts++
		}

		// only mined txs consumed gas.
		if r.BlockNumber > 0 {
			included++
			overall.TotalGasUsed += r.GasUsed
		}
	}
	if included > 0 {
		overall.AvgGasPerTransaction = overall.TotalGasUsed / uint64(included)
	}

	return loadtesttypes.RunResult{
		Overall:   overall,
		ByMessage: msgStats,
		Contracts: contracts,
		Attempts:  records,
	}
}
