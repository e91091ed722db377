// Netprobe daemon -- periodic TCP/UDP reachability prober.
package main

import "github.com/dantte-lp/netprobe/cmd/netprobe/commands"

func main() {
	commands.Execute()
}
