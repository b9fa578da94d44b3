package main

import (
	_ "time/tzdata"

	"github.com/jmehdipour/visa-crm/cmd"
)

func main() {
	cmd.Execute()
}
