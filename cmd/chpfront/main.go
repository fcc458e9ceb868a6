package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	chp "github.com/dudecc/chpsim"
)

func main() {
	var (
		searchPath = flag.String("I", "", "comma-separated module search path")
		mainProc   = flag.String("main", "main", "name of the top-level process to load")
		allowPorts = flag.Bool("allow-ports", false, "accept a top process declared with ports")
		strict     = flag.Bool("strict", false, "exit on the first semantic error instead of collecting them")
		configPath = flag.String("config", "", "YAML config file providing search_path/lexer_strict/import_builtin defaults")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: chpfront [-config file.yaml] [-I dir1,dir2,...] [-main name] <root.chp>")
	}
	rootPath := flag.Arg(0)

	var dirs []string
	if *searchPath != "" {
		dirs = strings.Split(*searchPath, ",")
	}
	if env := chp.SearchPathFromEnv("CHP_PATH"); len(env) > 0 {
		dirs = append(dirs, env...)
	}

	var driver *chp.Driver
	if *configPath != "" {
		d, err := chp.NewDriverFromConfigFile(*configPath, dirs)
		if err != nil {
			log.Fatal(err)
		}
		driver = d
	} else {
		driver = chp.NewDriver(dirs)
	}
	driver.Rec.Strict = *strict

	_, root, err := chp.ReadSource(driver, rootPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	driver.Rec.PrintAll()
	if driver.Rec.HasErrors() {
		os.Exit(1)
	}

	proc, err := chp.FindMain(root, *mainProc, *allowPorts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	state, err := chp.PrepareExec(driver, proc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer chp.TerminateExec(state)

	fmt.Printf("%s: loaded %q, %d meta argument(s), %d local(s)\n", os.Args[0], *mainProc, len(state.Meta), len(state.Locals))
}
