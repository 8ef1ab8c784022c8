package main

import "github.com/everFinance/pollmint/cli/pollmint/cmd"

func main() {
	cmd.Execute()
}
