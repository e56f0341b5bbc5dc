//go:build windows

package evaluator

import (
	"syscall"
	"unsafe"
)

var (
	kernel32DLL = syscall.NewLazyDLL("kernel32.dll")
	qpcProc     = kernel32DLL.NewProc("QueryPerformanceCounter")
	qpfProc     = kernel32DLL.NewProc("QueryPerformanceFrequency")
	qpcFreq     int64
)

func init() {
	qpfProc.Call(uintptr(unsafe.Pointer(&qpcFreq)))
}

// stopwatch measures elapsed evaluation time with the performance counter,
// which has a finer resolution than the system timer on Windows.
type stopwatch struct {
	startCount int64
}

func queryCounter() int64 {
	var count int64
	qpcProc.Call(uintptr(unsafe.Pointer(&count)))
	return count
}

func startStopwatch() stopwatch {
	return stopwatch{startCount: queryCounter()}
}

// elapsedMs returns the whole milliseconds since the stopwatch started.
func (s stopwatch) elapsedMs() int64 {
	return (queryCounter() - s.startCount) * 1000 / qpcFreq
}
