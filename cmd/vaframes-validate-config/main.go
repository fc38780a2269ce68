package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fosdem/vaframes/lib/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <config file> | --schema", os.Args[0])
	}
	if os.Args[1] == "--schema" {
		schema, err := config.Schema()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(schema))
		return
	}

	cfg, err := config.Parse(os.Args[1])
	if err != nil {
		fmt.Printf("Config invalid: %s\n", err)
		os.Exit(1)
	}

	fmt.Print("Config valid!\n\n")

	fmt.Print(cfg)
}
