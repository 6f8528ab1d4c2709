package main

import "mesaflow/cmd"

func main() {
	cmd.Execute()
}
