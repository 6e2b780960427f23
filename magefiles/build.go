//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Info builds the vkd3dinfo diagnostic binary.
func (Build) Info() error {
	fmt.Println("Build vkd3dinfo...")
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkd3dinfo", "./cmd/vkd3dinfo"), withStream())
	return err
}
