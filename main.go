package main

import "github.com/watercolor-games/redteam/cmd"

func main() {
	cmd.Execute()
}
