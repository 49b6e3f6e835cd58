package main

import (
	"log"
	"os"

	"github.com/ryanmoran/scriptrepository/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic occurred: %v", r)
			os.Exit(1)
		}
	}()

	if err := run(os.Args, os.Environ()); err != nil {
		log.Fatal(err)
	}
}

func run(args, env []string) error {
	root := cli.NewRootCommand(env, os.Stdout, os.Stderr)
	root.SetArgs(args[1:])

	return root.Execute()
}
