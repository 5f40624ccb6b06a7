package main

import (
	"os"

	"github.com/vibast-solutions/ms-go-hotel-billing/cmd"

	_ "time/tzdata"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
