package types

import "github.com/aerospike/aerospike-client-go/cmn"

// Filter is an opaque, already-encoded secondary-index filter expression.
// The core only ships these bytes over the wire; building them is a
// collaborator's job (§1 Scope, §6.3) — including the legacy PredExp list,
// which this core treats purely as "a deprecated alternative encoding of
// filter expressions" (§9 Design Notes) and never re-offers a builder for.
type Filter struct {
	Encoded []byte
}

// FunctionRef names a server-side UDF to invoke as part of a Statement
// (scan/query background execute). The core ships PackageName/FunctionName
// and pre-encoded Args; it never interprets them (§1 Scope).
type FunctionRef struct {
	PackageName  string
	FunctionName string
	Args         []byte // pre-encoded MessagePack argument list
}

// Statement describes a scan/query/execute job (§3 Statement). TaskID is
// randomly assigned at construction (see cmn.NewTaskID) and uniquely
// identifies the job server-side; polling it is the job of the task
// package (§4.7), not of Statement itself.
type Statement struct {
	Namespace string
	Set       string
	BinNames  []string
	Filter    *Filter
	Function  *FunctionRef
	TaskID    uint64
}

// NewStatement builds a Statement scoped to namespace/set over binNames
// (empty means every bin) with a fresh, randomly assigned TaskID. Filter
// and Function are left nil; set them on the returned value directly.
func NewStatement(namespace, set string, binNames ...string) Statement {
	return Statement{
		Namespace: namespace,
		Set:       set,
		BinNames:  binNames,
		TaskID:    cmn.NewTaskID(),
	}
}
