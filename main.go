package main

import "github.com/hrvisionhq/visionagent/cmd"

func main() {
	cmd.Execute()
}
