package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduler without the HTTP API",
	Run:   runScheduler,
}

func init() {
	schedulerCmd.Flags().Bool("once", false, "run a single tick and exit")
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, _ []string) {
	initApp()
	once, _ := cmd.Flags().GetBool("once")

	done := startScheduler(!once)

	if once {
		err := scheduler.TickNow(appCtx)
		pending := len(scheduler.Pending())
		StopApp()
		<-done
		if err != nil {
			logrus.WithError(err).Error("[SCHEDULER] tick failed")
			os.Exit(1)
		}
		logrus.Infof("[SCHEDULER] tick complete, %d posts pending", pending)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("[SCHEDULER] Reception of termination signal, shutting down gracefully...")
	StopApp()
	<-done
}
