package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/everFinance/pollmint"
	"github.com/everFinance/pollmint/common"
	"github.com/spf13/cobra"
)

const pidFile string = ".pollmint_pid.lock"

var daemon bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start pollmint",
	Long:  `start pollmint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !daemon {
			return runServer()
		}
		if _, err := os.Stat(pidFile); err == nil {
			fmt.Println("Failed start, PID file exist.running...")
			return nil
		}

		path, err := os.Executable()
		if err != nil {
			return err
		}
		command := exec.Command(path, "start", "--cfg", cfgFile)

		logFileName := fmt.Sprintf("pollmint_%d.log", time.Now().Unix())
		logFile, err := os.OpenFile(logFileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
		if err != nil {
			return err
		}
		command.Stdout = logFile
		command.Stderr = logFile

		if err := command.Start(); err != nil {
			return err
		}
		return os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", command.Process.Pid)), 0666)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "run in background")
}

func runServer() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	if err := common.InitSentry(cfg.SentryDsn, cfg.Env); err != nil {
		return err
	}
	common.NewMetricServer(cfg.MetricPort)

	m := pollmint.New(cfg.Options())
	m.Run(cfg.Port)

	<-signals
	m.Close()
	return nil
}
