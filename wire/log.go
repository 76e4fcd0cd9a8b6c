package wire

import (
	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
)

// logger is Klogr by default, callers can replace it with SetLogger
var logger logr.Logger

func init() {
	logger = klog.NewKlogr().WithName("protoraw.wire")
}

// SetLogger sets the logger used by the wire package.
func SetLogger(l logr.Logger) {
	logger = l
}
