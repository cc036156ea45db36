package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiebiao/circulation/internal/infrastructure/config"
	"github.com/xiebiao/circulation/pkg/logger"
)

// cli 所有子命令共享的状态
type cli struct {
	in  io.Reader
	out io.Writer

	configPath string
	jsonOutput bool
	logLevel   string

	cfg *config.Config
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Library circulation desk tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (default ./config/config.yaml if present)")
	flags.BoolVar(&c.jsonOutput, "json", false, "print JSON instead of a table")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		c.migrateCmd(),
		c.addBookCmd(),
		c.checkoutCmd(),
		c.checkinCmd(),
		c.showCmd(),
		c.searchCmd(),
		c.verifyCmd(),
		c.eventsCmd(),
	)
	return root
}

// setup 加载配置并初始化日志(输出到stderr,不干扰表格输出)
func (c *cli) setup() error {
	if _, _, err := logger.New(logger.Options{Level: c.logLevel, Format: "console", Output: "stderr"}); err != nil {
		return err
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	slog.Debug("config loaded", "driver", cfg.Database.Driver)
	return nil
}

// loadConfig 显式指定的文件必须存在;未指定时找不到默认文件就只用默认值和环境变量
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	cfg, err := config.Load()
	if err == nil {
		return cfg, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return config.LoadFrom("")
	}
	return nil, fmt.Errorf("load config: %w", err)
}
