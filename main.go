package main

import "compat-merger/cmd"

func main() {
	cmd.Execute()
}
