package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	root := &cobra.Command{
		Use:           "tsutsuji",
		Short:         "Photo and video sharing client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())

	if err := root.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
