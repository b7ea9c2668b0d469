package main

import "github.com/schemakeep/schemakeep/cmd"

func main() {
	cmd.Execute()
}
