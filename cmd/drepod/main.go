/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/datican/datarepo/cmd/drepod/cmd"

func main() {
	cmd.Execute()
}
