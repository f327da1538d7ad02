// sshsync runs commands on remote hosts and synchronizes directory trees
// with them over SFTP.
package main

import (
	"fmt"
	"os"
)

// Version information - set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
