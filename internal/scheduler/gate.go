package scheduler

import (
	"fmt"
	"time"

	"github.com/fachebot/stream-digest/internal/config"
)

// CheckGate 托管调度环境（SchedulerEnv 指定的环境变量存在）下只在 Schedule.Day 当天运行。
// 未配置或无法识别 Day 时同样拒绝运行
func CheckGate(cfg *config.Schedule, now time.Time, lookupEnv func(string) (string, bool)) error {
	name := cfg.SchedulerEnv
	if name == "" {
		name = "DYNO"
	}
	if _, ok := lookupEnv(name); !ok {
		return nil
	}

	day, err := config.ParseWeekday(cfg.Day)
	if err != nil || day != now.Weekday() {
		return fmt.Errorf("Not running script today - %s", now.Weekday())
	}
	return nil
}
