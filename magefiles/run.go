//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Info runs the vkd3dinfo diagnostic binary against whatever Vulkan
// driver is installed.
func (Run) Info() error {
	if err := (Build{}).Info(); err != nil {
		return err
	}
	fmt.Println("Run vkd3dinfo...")
	_, err := executeCmd("./bin/vkd3dinfo", withStream())
	return err
}
