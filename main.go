package main

import "hypecast/cmd"

func main() {
	cmd.Execute()
}
