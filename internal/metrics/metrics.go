// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames read from a transport
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_frames_received_total",
			Help: "Total number of frames received",
		},
		[]string{"interface", "kind"},
	)

	// FramesUnmatchedTotal counts received frames no rule matched
	FramesUnmatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_frames_unmatched_total",
			Help: "Total number of received frames matching no rule",
		},
		[]string{"interface"},
	)

	// RuleMatchesTotal counts rule hits
	RuleMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_rule_matches_total",
			Help: "Total number of frames matched per rule",
		},
		[]string{"interface", "rule"},
	)

	// RepliesSentTotal counts replies written to a transport
	RepliesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_replies_sent_total",
			Help: "Total number of replies sent per rule",
		},
		[]string{"interface", "rule"},
	)

	// RepliesSuppressedTotal counts replies skipped by the cooldown
	RepliesSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_replies_suppressed_total",
			Help: "Total number of replies suppressed by the cooldown window",
		},
		[]string{"interface", "rule"},
	)

	// ReplyErrorsTotal counts frames dropped while producing a reply
	ReplyErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_reply_errors_total",
			Help: "Total number of reply failures by stage",
		},
		[]string{"interface", "rule", "stage"},
	)

	// CaptureFramesTotal counts frames written to a capture sink
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framesmith_capture_frames_total",
			Help: "Total number of frames written to capture sinks",
		},
		[]string{"sink"},
	)

	// ResponderState tracks the responder loop state
	ResponderState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framesmith_responder_state",
			Help: "Current responder state (0=stopped, 1=waiting, 2=dispatching)",
		},
		[]string{"interface"},
	)
)

// Reply failure stages.
const (
	StageTransform = "transform"
	StageBuild     = "build"
	StageSend      = "send"
)

// ResponderStateValue represents responder state as a numeric gauge value
const (
	ResponderStopped     = 0
	ResponderWaiting     = 1
	ResponderDispatching = 2
)
