// Package hardware discovers local USB accelerator candidates so an
// operator can construct the opaque "platform_id:device_id:cores"
// accelerator spec strings of spec §6.4.
package hardware

import (
	"fmt"

	"github.com/google/gousb"
)

// DeviceInfo describes one USB accelerator candidate found on the host.
type DeviceInfo struct {
	PlatformID int
	DeviceID   int
	VendorID   gousb.ID
	ProductID  gousb.ID
	Bus        int
	Address    int
}

// Spec renders d into an accelerator spec string, with cores supplied
// by the operator (the device itself does not report a core count).
func (d DeviceInfo) Spec(cores int) string {
	return fmt.Sprintf("%d:%d:%d", d.PlatformID, d.DeviceID, cores)
}

// Scan enumerates every USB device attached to the host and returns
// those whose vendor ID appears in knownVendors, tagged with a stable
// platform/device pair (platform is always 0 for USB; device is the
// enumeration order). It never opens a matched device, only inspects
// its descriptor.
func Scan(knownVendors ...gousb.ID) ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []DeviceInfo
	deviceID := 0

	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, v := range knownVendors {
			if desc.Vendor == v {
				found = append(found, DeviceInfo{
					PlatformID: 0,
					DeviceID:   deviceID,
					VendorID:   desc.Vendor,
					ProductID:  desc.Product,
					Bus:        desc.Bus,
					Address:    desc.Address,
				})
				deviceID++
				break
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("hardware: usb scan: %w", err)
	}
	return found, nil
}
