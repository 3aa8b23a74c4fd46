package main

import "github.com/Norgate-AV/shc/cmd"

func main() {
	cmd.Execute()
}
