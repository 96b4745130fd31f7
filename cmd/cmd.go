package cmd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-ps"
	"github.com/pinpt/powerbi-metadata/cmd/cmdexport"
	"github.com/pinpt/powerbi-metadata/cmd/cmdvalidate"
	"github.com/pinpt/powerbi-metadata/cmd/pkg/cmdlogger"
	"github.com/pinpt/powerbi-metadata/pkg/conf"
	"github.com/pinpt/powerbi-metadata/pkg/filelog"
	"github.com/pinpt/powerbi-metadata/pkg/fsconf"
	"github.com/spf13/cobra"
)

func Execute() {
	cmdRoot.Execute()
}

func getBannerColor() *color.Color {
	if runtime.GOOS == "windows" {
		p, _ := ps.FindProcess(os.Getppid())
		if p != nil && strings.Contains(p.Executable(), "powershell") {
			// colorize for powershell to make it more prominent
			return color.New(color.FgCyan)
		}
		// since we're in cmd it's usually black so make it more colorful
	}
	return color.New(color.FgHiYellow)
}

var cmdRoot = &cobra.Command{
	Use: "powerbi-metadata",
	Long: getBannerColor().Sprint(`    ____                          ____  ____
   / __ \____ _      _____  _____/ __ )/  _/
  / /_/ / __ \ | /| / / _ \/ ___/ __  |/ /
 / ____/ /_/ / |/ |/ /  __/ /  / /_/ // /
/_/    \____/|__/|__/\___/_/  /_____/___/  metadata connector
`),
	TraverseChildren: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func exitWithErr(logger hclog.Logger, err error) {
	logger.Error("error: " + err.Error())
	os.Exit(1)
}

func flagsLogger(cmd *cobra.Command) {
	cmd.Flags().String("log-format", "", "Set to json to see logs in json format.")
	cmd.Flags().String("log-level", "info", "One of info or debug.")
}

func flagRoot(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Root directory for state, logs and output. Default: ~/.powerbi-metadata")
}

func flagConfig(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Location of the config file. Default: <root>/config.yaml")
}

func getRoot(cmd *cobra.Command) (string, error) {
	res, _ := cmd.Flags().GetString("root")
	if res != "" {
		return res, nil
	}
	return fsconf.DefaultRoot()
}

// commandSetup resolves the flags shared by all commands: logger copying to a
// file under <root>/logs, filesystem locations and the parsed config file.
func commandSetup(cmd *cobra.Command) (logger hclog.Logger, locs fsconf.Locs, config conf.Config) {
	logger0 := cmdlogger.NewLogger(cmd)
	logger = logger0

	root, err := getRoot(cmd)
	if err != nil {
		exitWithErr(logger, err)
	}
	locs = fsconf.New(root)

	logFile := filepath.Join(locs.Logs, strings.Split(cmd.Use, " ")[0])
	wr, err := filelog.NewSyncWriter(logFile)
	if err != nil {
		logger.Error("could not create log file", "err", err)
	} else {
		logger = logger0.AddWriter(wr)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile = filepath.Join(root, "config.yaml")
	}
	config, err = conf.Load(configFile)
	if err != nil {
		exitWithErr(logger, err)
	}
	return
}

var cmdExport = &cobra.Command{
	Use:   "export",
	Short: "Export all admin metadata and activity events to gzipped json lines files",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger, locs, config := commandSetup(cmd)
		outputDir, _ := cmd.Flags().GetString("output-dir")
		err := cmdexport.Run(context.Background(), cmdexport.Opts{
			Logger:    logger,
			Config:    config,
			Locs:      locs,
			OutputDir: outputDir,
		})
		if err != nil {
			exitWithErr(logger, err)
		}
	},
}

func init() {
	cmd := cmdExport
	flagsLogger(cmd)
	flagRoot(cmd)
	flagConfig(cmd)
	cmd.Flags().String("output-dir", "", "Custom output directory. Default: <root>/output")
	cmdRoot.AddCommand(cmd)
}

var cmdValidate = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configured credentials can reach the admin api",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger, _, config := commandSetup(cmd)
		err := cmdvalidate.Run(context.Background(), cmdvalidate.Opts{
			Logger: logger,
			Config: config,
		})
		if err != nil {
			exitWithErr(logger, err)
		}
	},
}

func init() {
	cmd := cmdValidate
	flagsLogger(cmd)
	flagRoot(cmd)
	flagConfig(cmd)
	cmdRoot.AddCommand(cmd)
}
