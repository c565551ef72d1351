package types

import (
	"time"
)

// RunResult represents the results of a deploy run
type RunResult struct {
	Overall   OverallStats
	ByMessage map[MsgType]TransactionStats
	Contracts []string
	Attempts  []AttemptRecord
	Error     string `json:"error,omitempty"`
}

// OverallStats represents the overall statistics of the run
type OverallStats struct {
	TotalTransactions      int
	SuccessfulTransactions int
	FailedTransactions     int
	BroadcastFailures      int
	NetworkFailures        int
	Timeouts               int
	Reverts                int
	TotalGasUsed           uint64
	AvgGasPerTransaction   uint64
	Runtime                time.Duration
	StartTime              time.Time
	EndTime                time.Time
}

// TransactionStats represents transaction-related statistics
type TransactionStats struct {
	Total      int
	Successful int
	Failed     int
}

// AttemptRecord is the reportable outcome of a single submission attempt.
type AttemptRecord struct {
	MsgType         MsgType
	Sender          string
	TxHash          string        `json:",omitempty"`
	Nonce           uint64        `json:",omitempty"`
	Succeeded       bool
	ContractAddress string        `json:",omitempty"`
	BlockNumber     uint64        `json:",omitempty"`
	GasUsed         uint64        `json:",omitempty"`
	Latency         time.Duration `json:",omitempty"`
	Failure         FailureKind   `json:",omitempty"`
	Error           string        `json:",omitempty"`
}

type MsgType string

func (m MsgType) String() string {
	return string(m)
}
