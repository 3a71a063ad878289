package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"leaf-backend/pkg/client"
)

func main() {
	server := flag.String("server", "http://localhost:5000", "address of a running leaf server")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-server url] <image>\n", os.Args[0])
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	prediction, err := client.New(*server).Predict(ctx, flag.Arg(0))
	if err != nil {
		log.Fatalf("classification failed: %v", err)
	}

	out, err := json.MarshalIndent(prediction, "", "  ")
	if err != nil {
		log.Fatalf("error formatting result: %v", err)
	}
	fmt.Println(string(out))
}
