package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/jobboard/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	// .env はローカル開発用。存在しなければ環境変数のみを使う
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jobboard: %v\n", err)
		os.Exit(1)
	}
}
