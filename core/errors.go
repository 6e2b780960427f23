package core

import (
	"errors"
	"sync"
)

// HRESULT-shaped error taxonomy (spec.md §7). Public operations return
// these sentinels (wrapped with fmt.Errorf("...: %w", ...) where context
// helps) so callers can errors.Is against them while HResult() recovers
// the numeric code an actual D3D12 API boundary would hand back.
var (
	ErrInvalidArg    = errors.New("invalid argument")
	ErrNotImpl       = errors.New("not implemented")
	ErrOutOfMemory   = errors.New("out of memory")
	ErrFail          = errors.New("operation failed")
	ErrNoInterface   = errors.New("no such interface")
	ErrDeviceRemoved = errors.New("device removed")
)

const (
	hrInvalidArg    uint32 = 0x80070057 // E_INVALIDARG
	hrNotImpl       uint32 = 0x80004001 // E_NOTIMPL
	hrOutOfMemory   uint32 = 0x8007000E // E_OUTOFMEMORY
	hrFail          uint32 = 0x80004005 // E_FAIL
	hrNoInterface   uint32 = 0x80004002 // E_NOINTERFACE
	hrDeviceRemoved uint32 = 0x887A0005 // DXGI_ERROR_DEVICE_REMOVED
	hrOK            uint32 = 0x00000000 // S_OK
)

// HResult maps one of the sentinel errors above (or nil) onto the
// numeric code a COM-shaped boundary returns. Errors that don't match
// any sentinel map to E_FAIL, matching the source's "never poison
// neighboring objects" rule: an unrecognized internal error still
// becomes a synchronous, well-formed failure to the caller.
func HResult(err error) uint32 {
	switch {
	case err == nil:
		return hrOK
	case errors.Is(err, ErrInvalidArg):
		return hrInvalidArg
	case errors.Is(err, ErrNotImpl):
		return hrNotImpl
	case errors.Is(err, ErrOutOfMemory):
		return hrOutOfMemory
	case errors.Is(err, ErrNoInterface):
		return hrNoInterface
	case errors.Is(err, ErrDeviceRemoved):
		return hrDeviceRemoved
	default:
		return hrFail
	}
}

// DeviceRemovedReason is the sticky terminal state described in spec.md
// §5/§7: once set, the stored reason never changes. Only
// Device.GetDeviceRemovedReason reports it; other device methods do not
// check it before attempting their operations.
type DeviceRemovedReason struct {
	mu     sync.Mutex
	reason error
}

// Set stores reason the first time it is called; subsequent calls are
// no-ops, so whichever subsystem first detects device loss wins.
func (d *DeviceRemovedReason) Set(reason error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reason == nil {
		if reason == nil {
			reason = ErrDeviceRemoved
		}
		d.reason = reason
	}
}

// Reason returns the stored reason, or nil if the device is still alive.
func (d *DeviceRemovedReason) Reason() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}
