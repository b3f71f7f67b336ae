package main

import "teleferry/cmd"

func main() {
	cmd.Execute()
}
