package main

import "github.com/KotobaMedia/binary-blackhole/cmd"

func main() {
	cmd.Execute()
}
