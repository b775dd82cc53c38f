// Package main is a minimal driver exercising the client end to end:
// connect, write a record, read it back, then scan the set.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang/glog"

	aerospike "github.com/aerospike/aerospike-client-go"
	"github.com/aerospike/aerospike-client-go/policy"
)

var (
	hosts     = flag.String("hosts", "127.0.0.1:3000", "comma-separated seed host:port list")
	namespace = flag.String("namespace", "test", "namespace to read/write against")
	set       = flag.String("set", "example", "set name")

	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	memProfile = flag.String("memprofile", "", "write memory profile to `file`")
)

// NOTE: these variables are set by ldflags
var (
	version string
	build   string
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	glog.Infof("aerospike-client-go example, version %s build %s", version, build)

	if s := *cpuProfile; s != "" {
		*cpuProfile = s + "." + strconv.Itoa(syscall.Getpid())
		f, err := os.Create(*cpuProfile)
		if err != nil {
			glog.Fatalf("couldn't create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Fatalf("couldn't start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	exitCode := demo()

	if s := *memProfile; s != "" {
		*memProfile = s + "." + strconv.Itoa(syscall.Getpid())
		f, err := os.Create(*memProfile)
		if err != nil {
			glog.Fatalf("couldn't create memory profile: %v", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			glog.Fatalf("couldn't write memory profile: %v", err)
		}
	}

	return exitCode
}

func demo() int {
	cp := policy.DefaultClientPolicy()
	for _, h := range strings.Split(*hosts, ",") {
		addr, portStr, err := splitHostPort(h)
		if err != nil {
			glog.Errorf("bad -hosts entry %q: %v", h, err)
			return 1
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			glog.Errorf("bad port in %q: %v", h, err)
			return 1
		}
		cp.Hosts = append(cp.Hosts, policy.Host{Addr: addr, Port: port})
	}

	client, err := aerospike.NewClient(cp)
	if err != nil {
		glog.Errorf("connect: %v", err)
		return 1
	}
	defer client.Close()

	key, err := aerospike.NewKey(*namespace, *set, "example-key")
	if err != nil {
		glog.Errorf("NewKey: %v", err)
		return 1
	}

	wp := policy.DefaultWritePolicy()
	if err := client.Put(wp, key, aerospike.NewBin("greeting", aerospike.StringValue("hello"))); err != nil {
		glog.Errorf("Put: %v", err)
		return 1
	}

	rec, err := client.Get(policy.DefaultPolicy(), key)
	if err != nil {
		glog.Errorf("Get: %v", err)
		return 1
	}
	glog.Infof("read back record: bins=%v generation=%d", rec.Bins, rec.Generation)

	rs := client.ScanAll(policy.DefaultQueryPolicy(), *namespace, *set)
	count := 0
	for range rs.Records() {
		count++
	}
	if err := rs.Err(); err != nil {
		glog.Errorf("scan: %v", err)
		return 1
	}
	glog.Infof("scanned %d records in %s.%s", count, *namespace, *set)

	return 0
}

func splitHostPort(hostport string) (host, port string, err error) {
	i := strings.LastIndex(hostport, ":")
	if i < 0 {
		return "", "", os.ErrInvalid
	}
	return hostport[:i], hostport[i+1:], nil
}
