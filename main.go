package main

import (
	"os"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
