/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/skohler/chamber-pi/cmd"

func main() {
	cmd.Execute()
}
