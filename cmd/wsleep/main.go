package main

import "github.com/petterhs/wakesleepmanager/cmd/wsleep/cmd"

func main() {
	cmd.Execute()
}
