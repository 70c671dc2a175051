package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fachebot/stream-digest/internal/config"
	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/scheduler"
	"github.com/fachebot/stream-digest/internal/svc"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "etc/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream-digest [zulip-email zulip-api-key]",
		Short: "Send a weekly summary of Zulip stream activity",
		Long: `stream-digest fetches the last week of messages from every stream the
service account can see, extracts a short summary of each topic and delivers
the result as an HTML email (SendGrid) or opens it in a browser.

Credentials may be passed as arguments or through ZULIP_EMAIL and
ZULIP_API_KEY. The config file is read from $DIGEST_CONFIG (default
etc/config.yaml) when present.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	// 加载 .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("加载 .env 失败, %v", err)
	}

	// 读取配置文件
	configFile := os.Getenv("DIGEST_CONFIG")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	c, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("读取配置文件失败, %w", err)
	}
	c.ApplyEnv(os.LookupEnv)
	if len(args) == 2 {
		c.SetCredentials(args[0], args[1])
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := logger.SetLevel(c.Log.Level); err != nil {
		return err
	}

	daemon := c.Schedule.Cron != ""
	if !daemon {
		if err := scheduler.CheckGate(&c.Schedule, time.Now(), os.LookupEnv); err != nil {
			return err
		}
	}

	// 创建服务上下文
	svcCtx := svc.NewServiceContext(c)
	defer svcCtx.Close()
	runner := scheduler.NewRunner(svcCtx)

	if daemon {
		return serve(svcCtx, runner)
	}

	start, end := scheduler.Window(time.Now(), c.Summary.RangeDays)
	result, err := runner.Run(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	logger.Infof("运行完成, %s", result)
	return nil
}

// serve 守护进程模式，直到收到退出信号
func serve(svcCtx *svc.ServiceContext, runner *scheduler.Runner) error {
	schedulerInstance := scheduler.NewServiceScheduler(svcCtx, runner)
	if err := schedulerInstance.Start(); err != nil {
		return fmt.Errorf("[Scheduler] 启动调度器失败: %w", err)
	}

	// 等待程序退出
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	// 优雅关闭
	logger.Infof("正在关闭服务...")
	schedulerInstance.Stop()
	logger.Infof("服务已停止")
	return nil
}
