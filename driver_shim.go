// driver_shim.go - uniform error surface over KMS/accelerator/compute calls

package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// status is the uniform return code used by the thin wrappers over
// DRM ioctls and the accelerator userspace library: 0 or positive is
// success, negative is failure. Mirrors the convention the real
// libdrm/libdrm_amdgpu C APIs use, so the Go call sites read the same
// way the C call sites would.
type status int32

func (s status) ok() bool { return s >= 0 }

// diagf prints a diagnostic line. Top-level diagnostics have no
// prefix; detailed sub-path diagnostics (passed through diagSub) get a
// single leading tab, per §4.H. Output is flushed immediately since
// os.Stderr is unbuffered.
func diagf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func diagSub(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\t"+format+"\n", args...)
}

// errKind classifies a failure for the orchestrator's fallback
// decision in §7: environment and discovery failures are terminal,
// import/allocation and GPU execution failures trigger the next
// strategy in the ladder, host I/O failures are terminal with no
// retry.
type errKind int

const (
	errEnvironment errKind = iota
	errDiscovery
	errImportAlloc
	errGPUExec
	errHostIO
)

// acquireError wraps a failure from one acquisition strategy so the
// orchestrator can log it and decide whether to fall through.
type acquireError struct {
	strategy string
	kind     errKind
	err      error
}

func (e *acquireError) Error() string {
	return fmt.Sprintf("%s: %v", e.strategy, e.err)
}

func (e *acquireError) Unwrap() error { return e.err }

// recoverable reports whether the orchestrator should try the next
// strategy after this error, per §7's propagation policy.
func (e *acquireError) recoverable() bool {
	return e.kind == errImportAlloc || e.kind == errGPUExec
}

func wrapAcquire(strategy string, kind errKind, err error) error {
	if err == nil {
		return nil
	}
	return &acquireError{strategy: strategy, kind: kind, err: err}
}

// strategyRecoverable reports whether a failed acquisition strategy's
// error should fall through to the next rung of the ladder. Only
// import/allocation and GPU-execution failures are recoverable per
// §7; environment, discovery, and host I/O failures are terminal and
// propagate straight up rather than falling through to the next
// strategy (or, on the last rung, to the dumb-buffer shadow).
func strategyRecoverable(err error) bool {
	var ae *acquireError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.recoverable()
}

// closeFD closes a raw file descriptor obtained from an ioctl (PRIME
// export, dmabuf export), logging rather than failing the caller if
// close itself errors - there is nothing useful to do about it.
func closeFD(fd int) {
	if err := unix.Close(fd); err != nil {
		diagSub("close fd %d: %v", fd, err)
	}
}
