// Package policy holds the caller-owned, immutable-after-submission
// configuration records that drive every command: timeouts, retries, read
// mode, and the write/batch/query/admin specializations (§3 Policy).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package policy

import "time"

// ReadModeSC selects which replica a read is allowed to land on under
// strong-consistency namespaces (§3 Policy read-mode).
type ReadModeSC int

const (
	ReadModeMaster ReadModeSC = iota
	ReadModeAnyReplica
	ReadModeSequence
)

// CommitLevel controls how many replicas must durably apply a write before
// the server acknowledges it (§3 Policy write-commit-level).
type CommitLevel int

const (
	CommitAll CommitLevel = iota
	CommitMaster
)

// GenerationPolicy controls how Policy.Generation is enforced server-side
// (§3 Policy generation-policy, §8 idempotence-of-retry property).
type GenerationPolicy int

const (
	GenerationIgnore GenerationPolicy = iota
	GenerationEqual
	GenerationGreater
)

// BasePolicy carries every field common to all command kinds. It follows
// the teacher's two-layer Conf shape (`cmn.TimeoutConf`, `cmn.ClientConf`):
// a *Str field for config-file/JSON round-tripping and a resolved
// time.Duration field for runtime use, reconciled by Validate.
type BasePolicy struct {
	SocketTimeoutStr string        `json:"socket_timeout,omitempty"`
	TotalTimeoutStr  string        `json:"total_timeout,omitempty"`
	SleepBetweenRetriesStr string  `json:"sleep_between_retries,omitempty"`
	// omit
	SocketTimeout       time.Duration `json:"-"`
	TotalTimeout        time.Duration `json:"-"`
	SleepBetweenRetries time.Duration `json:"-"`

	MaxRetries int        `json:"max_retries"`
	ReadMode   ReadModeSC `json:"read_mode"`
	SendKey    bool       `json:"send_key"`
	Compress   bool       `json:"compress"`
}

// DefaultBasePolicy mirrors the teacher's documented defaults for similarly
// shaped knobs (`tend-interval-ms`, `max-conns-per-node`, §6.4) scaled to a
// per-command policy instead of a cluster-wide config.
func DefaultBasePolicy() BasePolicy {
	return BasePolicy{
		SocketTimeout: 30 * time.Second,
		TotalTimeout:  1 * time.Second,
		MaxRetries:    2,
		ReadMode:      ReadModeMaster,
	}
}

// Validate resolves the *Str duration fields into their time.Duration
// counterparts, the way `cmn.Config.apply()` resolves `TimeoutConf`.
func (p *BasePolicy) Validate() error {
	var err error
	if p.SocketTimeout, err = parseDurationOr(p.SocketTimeoutStr, p.SocketTimeout); err != nil {
		return err
	}
	if p.TotalTimeout, err = parseDurationOr(p.TotalTimeoutStr, p.TotalTimeout); err != nil {
		return err
	}
	if p.SleepBetweenRetries, err = parseDurationOr(p.SleepBetweenRetriesStr, p.SleepBetweenRetries); err != nil {
		return err
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

// Policy is the read-path policy (§3 Policy).
type Policy struct {
	BasePolicy
}

func DefaultPolicy() *Policy { return &Policy{BasePolicy: DefaultBasePolicy()} }

// WritePolicy extends BasePolicy with write-specific knobs (§3 Policy).
type WritePolicy struct {
	BasePolicy
	CommitLevel      CommitLevel
	Expiration       uint32
	GenerationPolicy GenerationPolicy
	Generation       uint32
}

func DefaultWritePolicy() *WritePolicy {
	return &WritePolicy{BasePolicy: DefaultBasePolicy(), CommitLevel: CommitAll}
}

// BatchPolicy governs batch/multi-record dispatch (§3 Policy, §4.6).
type BatchPolicy struct {
	BasePolicy
	// AllowPartialResults, when true, leaves per-offset sub-errors in place
	// and lets sibling offsets in the group resolve normally; when false,
	// the first sub-error in a group is group-fatal (§4.6, §7 Propagation).
	AllowPartialResults bool
	// MaxConcurrentNodes bounds how many per-node batch streams run at
	// once; zero means unbounded (one goroutine per owning node).
	MaxConcurrentNodes int
}

func DefaultBatchPolicy() *BatchPolicy {
	return &BatchPolicy{BasePolicy: DefaultBasePolicy(), AllowPartialResults: true}
}

// QueryPolicy governs scan/query RecordSet streaming (§4.6 Streaming).
type QueryPolicy struct {
	BasePolicy
	// RecordQueueSize bounds the RecordSet channel (§4.6 Streaming:
	// "a bounded, blocking channel ... Producer threads block on put when
	// the channel is full").
	RecordQueueSize int
}

func DefaultQueryPolicy() *QueryPolicy {
	return &QueryPolicy{BasePolicy: DefaultBasePolicy(), RecordQueueSize: 256}
}

// AdminPolicy governs the out-of-scope administrative command framing
// (§6.3); the core only needs its timeout shape, not its command bodies.
type AdminPolicy struct {
	BasePolicy
}

func DefaultAdminPolicy() *AdminPolicy {
	return &AdminPolicy{BasePolicy: DefaultBasePolicy()}
}

// TaskPolicy governs polling a long-running server job to completion
// (§4.7 Task Polling).
type TaskPolicy struct {
	// Timeout bounds the whole poll; zero means poll forever. Per §4.7,
	// a zero timeout also changes NOT_FOUND's meaning: the server forgets
	// completed jobs quickly, so NOT_FOUND is treated as COMPLETE only
	// when Timeout == 0, and as IN_PROGRESS otherwise.
	Timeout time.Duration
	// PollInterval is the sleep between successive poll rounds.
	PollInterval time.Duration
}

func DefaultTaskPolicy() *TaskPolicy {
	return &TaskPolicy{PollInterval: 1 * time.Second}
}
