package main

import "github.com/urbanbot/server/cmd"

func main() {
	cmd.Execute()
}
