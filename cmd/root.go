package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "in-your-face",
	Short: "A CLI tool for preparing LFW face-pair datasets",
	Long: `In Your Face prepares paired face images from the Labeled Faces in the Wild
dataset for a face-verification classifier. It crops and downsamples image
pairs, stores cleaned datasets in PostgreSQL and describes the classifier
architectures that consume them.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
