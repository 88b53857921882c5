package main

import (
	"github.com/OFFIS-RIT/companynet/internal/config"
	"github.com/OFFIS-RIT/companynet/internal/server"
	"github.com/OFFIS-RIT/companynet/internal/util"
	"github.com/OFFIS-RIT/companynet/pkg/logger"
	"github.com/OFFIS-RIT/companynet/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
	})
	logger.Init(consoleLogger)

	server.Init(cfg)
}
