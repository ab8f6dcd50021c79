package main

import (
	"fmt"
	"os"

	i915shim "github.com/sealedgfx/i915shim"
	"github.com/sealedgfx/i915shim/internal/drmabi"
	"github.com/sealedgfx/i915shim/internal/hostmem"
)

// demoFd stands in for a real /dev/dri/cardN file descriptor; there is no
// kernel underneath this harness, only the loopback bridge below.
const demoFd = 3

func main() {
	bridge := hostmem.NewLoopbackBridge()
	bridge.Handle(drmabi.CmdGemGetAperture, func(cmd uint32, arg uintptr, mem *hostmem.NativeBridge) (int32, error) {
		view := mem.Bytes(arg, uintptr(drmabi.SizeOf[drmabi.DrmI915GemGetAperture]()))
		drmabi.PutStruct(view, drmabi.DrmI915GemGetAperture{AperSize: 1 << 32, AperAvailableSize: 1 << 30})
		return 0, nil
	})

	shim := i915shim.Open(demoFd, bridge, nil)

	buf := make([]byte, drmabi.SizeOf[drmabi.DrmI915GemGetAperture]())
	status, err := shim.Dispatch(drmabi.CmdGemGetAperture, buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "GEM_GET_APERTURE failed: %v\n", err)
		os.Exit(1)
	}
	aperture := drmabi.GetStruct[drmabi.DrmI915GemGetAperture](buf)
	fmt.Printf("GEM_GET_APERTURE status=%d aper_size=%d aper_available_size=%d\n",
		status, aperture.AperSize, aperture.AperAvailableSize)

	metrics := shim.Metrics()
	fmt.Printf("arenas=%d growth_count=%d\n", len(metrics.Arenas), metrics.GrowthCount)
}
