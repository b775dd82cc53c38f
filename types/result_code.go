// Package types defines the data model shared by every layer of the client:
// result codes, the tagged Value union, bins, keys, and records.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package types

import "strconv"

// ResultCode is the server-side status returned in every response header.
// The taxonomy mirrors the wire values the server actually sends; it is not
// an exhaustive enumeration of every code the server has ever defined.
type ResultCode int

// Server result codes (header.result-code, §7 of the protocol design).
const (
	OK                     ResultCode = 0
	GenericError           ResultCode = 1
	KeyNotFound            ResultCode = 2
	GenerationError        ResultCode = 3
	ParameterError         ResultCode = 4
	KeyExists              ResultCode = 5
	BinExists              ResultCode = 6
	ClusterKeyMismatch     ResultCode = 7
	ServerFull             ResultCode = 8
	Timeout                ResultCode = 9
	NoXDS                  ResultCode = 10
	ServerNotAvailable     ResultCode = 11
	BinTypeError           ResultCode = 12
	RecordTooBig           ResultCode = 13
	KeyBusy                ResultCode = 14
	ScanAbort              ResultCode = 15
	UnsupportedFeature     ResultCode = 16
	BinNotFound            ResultCode = 17
	DeviceOverload         ResultCode = 18
	KeyMismatch            ResultCode = 19
	InvalidNamespace       ResultCode = 20
	BinNameTooLong         ResultCode = 21
	FailForbidden          ResultCode = 22
	ElementNotFound        ResultCode = 23
	ElementExists          ResultCode = 24
	EnterpriseOnly         ResultCode = 25
	OpNotApplicable        ResultCode = 26
	FilteredOut            ResultCode = 27
	LostConflict           ResultCode = 28
	QueryEnd               ResultCode = 50
	SecurityNotSupported   ResultCode = 51
	SecurityNotEnabled     ResultCode = 52
	SecuritySchemeNotSupported ResultCode = 53
	InvalidCommand        ResultCode = 54
	InvalidField          ResultCode = 55
	IllegalState          ResultCode = 56
	InvalidUser           ResultCode = 60
	UserAlreadyExists     ResultCode = 61
	InvalidPassword       ResultCode = 62
	ExpiredPassword       ResultCode = 63
	ForbiddenPassword     ResultCode = 64
	InvalidCredential     ResultCode = 65
	ExpiredSession        ResultCode = 66
	InvalidRole           ResultCode = 70
	RoleAlreadyExists     ResultCode = 71
	InvalidPrivilege      ResultCode = 72
	InvalidWhitelist      ResultCode = 73
	QuotasNotEnabled      ResultCode = 74
	InvalidQuota          ResultCode = 75
	NotAuthenticated      ResultCode = 80
	RoleViolation         ResultCode = 81
	NotWhitelisted        ResultCode = 82
	QuotaExceeded         ResultCode = 83
	UDFBadResponse        ResultCode = 100
	BatchDisabled         ResultCode = 150
	BatchMaxRequestsExceeded ResultCode = 151
	BatchQueuesFull       ResultCode = 152
	GeoInvalidGeoJSON     ResultCode = 160
	IndexFound            ResultCode = 200
	IndexNotFound         ResultCode = 201
	IndexOOM              ResultCode = 202
	IndexNotReadable      ResultCode = 203
	IndexGeneric          ResultCode = 204
	IndexNameMaxLen       ResultCode = 205
	IndexMaxCount         ResultCode = 206
	QueryUserAbort        ResultCode = 210
	QueryQueueFull        ResultCode = 211
	QueryTimeout          ResultCode = 212
	QueryGeneric          ResultCode = 213
	QueryNetIOErr         ResultCode = 214
	QueryDuplicate        ResultCode = 215
	AerospikeErrUDFNotFound ResultCode = 1301
	AerospikeErrLuaFileNotFound ResultCode = 1302

	// NetworkError, UnknownParticleType and the like never arrive over the wire;
	// they're assigned negative codes reserved for client-local conditions
	// so a switch over ResultCode can still dispatch on them uniformly.
	NetworkError  ResultCode = -1
	Truncated     ResultCode = -2
	UnknownParticleType ResultCode = -3
	Utf8Error     ResultCode = -4
	UnexpectedKey ResultCode = -5
	MissingKey    ResultCode = -6
	ClientTimeout ResultCode = -7
	NoAvailableConnections ResultCode = -8
	ClusterIsEmpty ResultCode = -9
	NoNodeForPartition ResultCode = -10
	PoolExhausted ResultCode = -11
	InvalidNodeError ResultCode = -12
	Cancelled     ResultCode = -13
)

// retriableCodes are the result codes the command engine is allowed to
// re-dispatch without caller intervention (§4.5, §7).
var retriableCodes = map[ResultCode]bool{
	Timeout:            true,
	NetworkError:       true,
	ServerNotAvailable: true,
	ClientTimeout:      true,
}

// PartitionUnavailable is handled identically to the other retriable codes
// but the server only assigns it under migration; kept distinct in case a
// caller wants to special-case it later without widening retriableCodes.
const PartitionUnavailable ResultCode = 9001

func init() {
	retriableCodes[PartitionUnavailable] = true
}

// NotMaster mirrors the spec's terminology for a stale-map write landing on
// a non-master replica; the server itself reports this as ClusterKeyMismatch
// in older protocol revisions and as a dedicated code in newer ones. Only
// NotMaster is retriable and triggers an out-of-band partition map refresh
// (command.Execute); ClusterKeyMismatch is returned to the caller as final.
const NotMaster ResultCode = 45

func init() {
	retriableCodes[NotMaster] = true
}

// Retriable reports whether a command that failed with this code may be
// re-dispatched per the execution loop in §4.5.
func (c ResultCode) Retriable() bool { return retriableCodes[c] }

func (c ResultCode) String() string {
	if s, ok := resultCodeNames[c]; ok {
		return s
	}
	return "ResultCode(" + strconv.Itoa(int(c)) + ")"
}

var resultCodeNames = map[ResultCode]string{
	OK:                    "OK",
	GenericError:          "GENERIC_ERROR",
	KeyNotFound:           "KEY_NOT_FOUND",
	GenerationError:       "GENERATION_ERROR",
	ParameterError:        "PARAMETER_ERROR",
	KeyExists:             "KEY_EXISTS",
	BinExists:             "BIN_EXISTS",
	ClusterKeyMismatch:    "CLUSTER_KEY_MISMATCH",
	ServerFull:            "SERVER_FULL",
	Timeout:               "TIMEOUT",
	ServerNotAvailable:    "SERVER_NOT_AVAILABLE",
	BinTypeError:          "BIN_TYPE_ERROR",
	RecordTooBig:          "RECORD_TOO_BIG",
	KeyBusy:               "KEY_BUSY",
	ScanAbort:             "SCAN_ABORTED",
	UnsupportedFeature:    "UNSUPPORTED_FEATURE",
	BinNotFound:           "BIN_NOT_FOUND",
	DeviceOverload:        "DEVICE_OVERLOAD",
	KeyMismatch:           "KEY_MISMATCH",
	InvalidNamespace:      "INVALID_NAMESPACE",
	BinNameTooLong:        "BIN_NAME_TOO_LONG",
	FailForbidden:         "FAIL_FORBIDDEN",
	NotAuthenticated:      "NOT_AUTHENTICATED",
	NotMaster:             "NOT_MASTER",
	PartitionUnavailable:  "PARTITION_UNAVAILABLE",
	UDFBadResponse:        "UDF_BAD_RESPONSE",
	NetworkError:          "NETWORK_ERROR",
	Truncated:             "PARSE_TRUNCATED",
	UnknownParticleType:   "PARSE_UNKNOWN_TYPE",
	Utf8Error:             "PARSE_UTF8",
	UnexpectedKey:         "PARSE_UNEXPECTED_KEY",
	MissingKey:            "PARSE_MISSING_KEY",
	ClientTimeout:         "CLIENT_TIMEOUT",
	NoAvailableConnections: "NO_AVAILABLE_CONNECTIONS",
	ClusterIsEmpty:        "CLUSTER_IS_EMPTY",
	NoNodeForPartition:    "NO_NODE_FOR_PARTITION",
	PoolExhausted:         "POOL_EXHAUSTED",
	InvalidNodeError:      "INVALID_NODE",
	Cancelled:             "CANCELLED",
}
