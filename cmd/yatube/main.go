package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gfdmit/yatube/config"
	"github.com/gfdmit/yatube/internal/app"
)

func main() {
	envFile := flag.String("env", ".env", "env file loaded on top of the process environment")
	flag.Usage = usage
	flag.Parse()

	conf, err := config.New(*envFile)
	if err != nil {
		log.Fatalf("[SETUP ERROR] error when reading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, *conf)
	if err != nil {
		log.Fatalf("[SETUP ERROR] %v", err)
	}

	err = run(ctx, a.Service, flag.Args(), os.Stdout)
	if cerr := a.Close(); cerr != nil {
		log.Printf("[SHUTDOWN] close: %v", cerr)
	}
	if errors.Is(err, errUsage) {
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[APPLICATION ERROR] error: %v", err)
	}
}

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), `usage: yatube [-env file] <command> [flags]

commands:
  migrate
  user add -username name
  group add -title t -slug s [-description d]
  group rm -slug s
  group ls
  post add -as user -text t [-group id] [-image file]
  post edit -as user -id n -text t [-group id] [-image file]
  post show -id n
  comment add -as user -post n -text t
  feed [-group slug | -author user] [-page n]
`)
}
