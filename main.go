package main

import "promptrun/cmd"

func main() {
	cmd.Execute()
}
