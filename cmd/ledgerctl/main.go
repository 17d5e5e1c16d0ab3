package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/config"
	"github.com/google/subcommands"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, "console")

	e := &env{out: os.Stdout, mongoURI: cfg.MongoURI, mongoDB: cfg.MongoDB}
	flag.StringVar(&e.dataDir, "data", cfg.DataDir, "diretório do storage em arquivo")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander, e)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
