package main

import "github.com/KaramelBytes/fuzzyreg-cli/cmd"

func main() {
	cmd.Execute()
}
