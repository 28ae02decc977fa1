package main

import (
	"elecharvest/cmd/elec-cli/commands"
	"elecharvest/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
