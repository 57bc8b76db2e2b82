package main

import "github.com/CyrilCartoux/watch-pros-sub002/internal/cmd"

func main() {
	cmd.Execute()
}
