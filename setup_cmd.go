package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// cmdSetup implements `safe-docker setup [--target DIR] [--force]`: create
// a symlink named docker inside target (default /usr/local/bin) pointing
// at this binary, so a PATH lookup for docker resolves to the guard.
func cmdSetup(args []string) int {
	target := "/usr/local/bin"
	force := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--target":
			if i+1 >= len(args) {
				fmt.Println(styleError("--target requires a value"))
				return 1
			}
			i++
			target = args[i]
		case "--force":
			force = true
		default:
			printUnknown("setup", args[i])
			return 1
		}
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Println(styleError("could not resolve this binary's own path: ") + err.Error())
		return 1
	}
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		fmt.Println(styleError("could not resolve this binary's canonical path: ") + err.Error())
		return 1
	}

	link := filepath.Join(target, "docker")
	if _, err := os.Lstat(link); err == nil {
		if !force {
			fmt.Println(styleError(fmt.Sprintf("%s already exists; pass --force to replace it", link)))
			return 1
		}
		if err := os.Remove(link); err != nil {
			fmt.Println(styleError("could not remove the existing entry: ") + err.Error())
			return 1
		}
	}

	if err := os.Symlink(self, link); err != nil {
		fmt.Println(styleError("could not create the symlink: ") + err.Error())
		return 1
	}

	infof("linked %s -> %s", link, self)
	infof("put %s ahead of the real docker on PATH to engage the guard", target)
	return 0
}
