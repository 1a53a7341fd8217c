package main

import "github.com/AzielCF/az-social/cmd"

func main() {
	cmd.Execute()
}
