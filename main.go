package main

import "github.com/halcyonchat/halcyon/cmd"

func main() {
	cmd.Execute()
}
