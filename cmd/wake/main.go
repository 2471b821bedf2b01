package main

import "github.com/petterhs/wakesleepmanager/cmd/wake/cmd"

func main() {
	cmd.Execute()
}
