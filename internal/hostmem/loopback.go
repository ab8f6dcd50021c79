package hostmem

// IoctlHandler simulates a kernel driver's reaction to one ioctl call: given
// the command and the untrusted argument address, it reads/writes the
// argument (and anything it points to) exactly as a real driver would, and
// returns the driver's int return code.
type IoctlHandler func(cmd uint32, arg uintptr, mem *NativeBridge) (int32, error)

// LoopbackBridge is a NativeBridge whose Ioctl is driven by a per-test
// handler, standing in for "the host kernel" in the deep-copy round-trip
// scenario tests: a loopback bridge that copies input to output of
// the correct fields.
type LoopbackBridge struct {
	*NativeBridge
	Handlers map[uint32]IoctlHandler
}

// NewLoopbackBridge builds an empty loopback bridge; register per-command
// behavior with Handle.
func NewLoopbackBridge() *LoopbackBridge {
	return &LoopbackBridge{
		NativeBridge: NewNativeBridge(),
		Handlers:     make(map[uint32]IoctlHandler),
	}
}

// Handle registers the simulated driver behavior for cmd.
func (b *LoopbackBridge) Handle(cmd uint32, h IoctlHandler) {
	b.Handlers[cmd] = h
}

// Ioctl dispatches to the registered handler for cmd, or succeeds as a no-op
// (return code 0) if none was registered — most commands in the test suite
// only care about the marshalling round-trip, not a particular driver
// response.
func (b *LoopbackBridge) Ioctl(fd int32, cmd uint32, arg uintptr) (int32, error) {
	h, ok := b.Handlers[cmd]
	if !ok {
		return 0, nil
	}
	return h(cmd, arg, b.NativeBridge)
}
