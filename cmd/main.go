package main

import (
	"github.com/stats-collector/cmd/agent"
)

func main() {
	agent.Execute()
}
