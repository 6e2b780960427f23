// Command vkd3dinfo creates a headless device and prints the Vulkan
// feature/extension set it resolved, the same smoke-test role
// vkd3d-proton's own diagnostic utilities serve: a quick way to confirm a
// driver is viable before pointing a real workload at it.
package main

import (
	"fmt"
	"os"

	vk "github.com/goki/vulkan"

	"github.com/vkd3d-go/vkd3d"
	"github.com/vkd3d-go/vkd3d/core"
)

func main() {
	d, err := vkd3d.CreateDevice(vkd3d.DeviceOptions{AppName: "vkd3dinfo"})
	if err != nil {
		core.LogError("vkd3dinfo: CreateDevice failed: %s", err)
		os.Exit(1)
	}
	defer d.Shutdown()

	ext := d.Ext()

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(ext.VkPhysicalDevice(), &props)
	props.Deref()
	name := vk.ToString(props.DeviceName[:])

	fmt.Printf("device:        %s\n", name)
	fmt.Printf("vendor id:     0x%04x\n", props.VendorID)
	fmt.Printf("device id:     0x%04x\n", props.DeviceID)
	fmt.Printf("driver version: 0x%08x\n", props.DriverVersion)
	fmt.Printf("api version:   %d.%d.%d\n",
		props.ApiVersion>>22,
		(props.ApiVersion>>12)&0x3ff,
		props.ApiVersion&0xfff)

	fmt.Println("required extensions:")
	for _, e := range []string{
		"VK_KHR_timeline_semaphore",
		"VK_KHR_push_descriptor",
		"VK_EXT_descriptor_indexing",
		"VK_KHR_buffer_device_address",
		"VK_KHR_synchronization2",
	} {
		fmt.Printf("  %s\n", e)
	}

	fmt.Println("optional extensions resolved at device creation:")
	fmt.Printf("  VK_EXT_device_generated_commands: %t\n", d.IndirectCapabilities().HasDeviceGeneratedCommands)
}
