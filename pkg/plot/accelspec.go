package plot

import (
	"fmt"
	"strconv"
	"strings"

	"plotgen/pkg/plot/worker"
)

// acceleratorBasePort is the convention this implementation uses to
// turn the opaque "platform_id:device_id:cores" spec string of §6.4
// into a concrete dial target for the accel gRPC contract: each
// platform/device pair is expected to be served by a local accelerator
// driver process (cmd/accelstub, or a vendor equivalent) listening on
// acceleratorBasePort + platform_id*100 + device_id.
const acceleratorBasePort = 9100

// newAcceleratorWorker parses spec and dials the corresponding driver
// process, returning a worker.Worker addressed as id (1-based, per
// spec §4.D).
func newAcceleratorWorker(id int, spec AcceleratorSpec, completions chan<- worker.Completion) (worker.Worker, error) {
	parts := strings.Split(string(spec), ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("plot: accelerator spec %q: expected \"platform_id:device_id:cores\"", spec)
	}

	platformID, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("plot: accelerator spec %q: bad platform_id: %w", spec, err)
	}
	deviceID, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("plot: accelerator spec %q: bad device_id: %w", spec, err)
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return nil, fmt.Errorf("plot: accelerator spec %q: bad cores: %w", spec, err)
	}

	address := fmt.Sprintf("127.0.0.1:%d", acceleratorBasePort+platformID*100+deviceID)
	return worker.NewAcceleratorWorker(id, address, completions)
}
