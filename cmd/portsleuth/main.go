// Command portsleuth is the entry point for the portsleuth CLI.
package main

import (
	"github.com/nvestad/portsleuth/cmd/cli"
)

func main() {
	cli.Execute()
}
