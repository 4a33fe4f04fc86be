package main

import "github.com/kozaktomas/in-your-face/cmd"

func main() {
	cmd.Execute()
}
