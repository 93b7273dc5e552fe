package main

import "trafficwatch-cli/cmd"

func main() {
	cmd.Execute()
}
