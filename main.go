package main

import "terminy/cmd"

func main() {
	cmd.Execute()
}
