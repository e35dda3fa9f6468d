package service

import "time"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// Metrics captures channel-level metric sinks used by Channel.
type Metrics interface {
	IncSessionOpened(nodeID string)
	IncSessionClosed(nodeID, reason string)
	SetSessionsOpen(nodeID string, n int)
	IncCommand(nodeID, command, result string)
	ObserveCommandDuration(nodeID, command string, d time.Duration)
	IncRead(nodeID, result string)
	SetStoreEntries(nodeID string, n int)
}

type noopMetrics struct{}

func (noopMetrics) IncSessionOpened(string)                               {}
func (noopMetrics) IncSessionClosed(string, string)                       {}
func (noopMetrics) SetSessionsOpen(string, int)                           {}
func (noopMetrics) IncCommand(string, string, string)                     {}
func (noopMetrics) ObserveCommandDuration(string, string, time.Duration) {}
func (noopMetrics) IncRead(string, string)                                {}
func (noopMetrics) SetStoreEntries(string, int)                           {}

// Session close reasons reported to Metrics.
const (
	CloseReasonClient   = "client"
	CloseReasonIdle     = "idle"
	CloseReasonShutdown = "shutdown"
)

// Read results reported to Metrics.
const (
	ReadResultValue = "value"
	ReadResultEmpty = "empty"
	ReadResultError = "error"
)
