package main

import "github.com/nando-os/ghost-wallet/cmd/ghostwallet/cmd"

func main() {
	cmd.Execute()
}
