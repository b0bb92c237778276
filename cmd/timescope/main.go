package main

import (
	"timescope/cmd/handlers"
	"timescope/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
