package main

import "github.com/kuhlman-labs/sonar-collector/internal/commands"

func main() {
	commands.Execute()
}
