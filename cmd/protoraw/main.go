package main

import (
	"flag"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/anirudhraja/protoraw/cmd/protoraw/cmd"
	"github.com/anirudhraja/protoraw/registry"
	"github.com/anirudhraja/protoraw/typed"
	"github.com/anirudhraja/protoraw/wire"
)

func main() {
	klog.InitFlags(flag.CommandLine)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	defer klog.Flush()
	wire.SetLogger(klog.NewKlogr().WithName("protoraw.wire"))
	registry.SetLogger(klog.NewKlogr().WithName("protoraw.registry"))
	typed.SetLogger(klog.NewKlogr().WithName("protoraw.typed"))

	cmd.Execute()
}
