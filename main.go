package main

import "cabin-manager/cmd"

func main() {
	cmd.Execute()
}
