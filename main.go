package main

import "github.com/AlexandrinoANP/ANP/cmd"

func main() {
	cmd.Execute()
}
