// Command al1905d is the IEEE 1905.1a Abstraction Layer daemon: it
// discovers neighboring devices over L2, maintains a topology database,
// forwards relayed CMDUs, and drives AP auto-configuration. Grounded on
// the teacher's cmd/niac entry point, trimmed of the legacy flag-parsing
// fallback the simulator needed for backward compatibility.
package main

import "os"

func main() {
	os.Exit(Execute())
}
