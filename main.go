// Lumio Portal Backend ingests bridge deposit events and serves per-wallet
// volume and status queries.
package main

import (
	"github.com/MShafiMalik/lumio-portal-backend/cmd"
)

func main() {
	cmd.Execute()
}
