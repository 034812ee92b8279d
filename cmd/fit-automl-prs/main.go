// Command fit-automl-prs fits one polygenic-score estimator
// configuration on a CSV dataset and reports training metrics.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/RossDeVito/AutoML-PRS/pkg/log"
)

func main() {
	root := &cobra.Command{
		Use:           "fit-automl-prs",
		Short:         "Polygenic score estimator suite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFitCommand())

	if err := root.Execute(); err != nil {
		log.GetLoggerWithName("cli").Error("command failed", err)
		os.Exit(1)
	}
}
