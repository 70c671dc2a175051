package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type Zulip struct {
	Email   string `yaml:"Email"`   // 服务账号邮箱，同时作为自身身份用于过滤
	APIKey  string `yaml:"APIKey"`  // 服务账号 API Key
	Site    string `yaml:"Site"`    // 站点域名，为空时取 Email 的域名部分
	Timeout int    `yaml:"Timeout"` // 单次请求超时（秒），默认 30
}

type Fetch struct {
	NumBefore   int `yaml:"NumBefore"`   // 单次拉取的消息上限，默认 5000
	Concurrency int `yaml:"Concurrency"` // 并发拉取的频道数，默认 4
}

type Summary struct {
	RangeDays int `yaml:"RangeDays"` // 总结天数，默认 7
}

type Schedule struct {
	Cron         string `yaml:"Cron"`         // cron 表达式，非空时以守护进程方式运行
	Day          string `yaml:"Day"`          // 托管调度环境下允许运行的星期，如 "Monday"
	SchedulerEnv string `yaml:"SchedulerEnv"` // 该环境变量存在时视为托管调度环境，默认 "DYNO"
}

type Email struct {
	SendGridAPIKey string `yaml:"SendGridAPIKey"` // 为空时改为本地打开文档
	SenderEmail    string `yaml:"SenderEmail"`
}

type Storage struct {
	Path string `yaml:"Path"` // 运行记录 SQLite 路径，为空时不记录
}

type LLM struct {
	BaseURL   string `yaml:"BaseURL"` // 兼容 OpenAI API 的端点
	APIKey    string `yaml:"APIKey"`  // 为空时不生成概述
	Model     string `yaml:"Model"`
	MaxTokens int    `yaml:"MaxTokens"` // 模型上下文窗口大小
}

type Log struct {
	Level string `yaml:"Level"` // 控制台日志级别，默认 info
}

type Config struct {
	Sock5Proxy Sock5Proxy `yaml:"Sock5Proxy"`
	Zulip      Zulip      `yaml:"Zulip"`
	Fetch      Fetch      `yaml:"Fetch"`
	Summary    Summary    `yaml:"Summary"`
	Schedule   Schedule   `yaml:"Schedule"`
	Email      Email      `yaml:"Email"`
	Storage    Storage    `yaml:"Storage"`
	LLM        LLM        `yaml:"LLM"`
	Log        Log        `yaml:"Log"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Zulip: Zulip{
			Timeout: 30,
		},
		Fetch: Fetch{
			NumBefore:   5000,
			Concurrency: 4,
		},
		Summary: Summary{
			RangeDays: 7,
		},
		Schedule: Schedule{
			SchedulerEnv: "DYNO",
		},
		Storage: Storage{
			Path: "data/digest.db",
		},
		LLM: LLM{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 16000,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromFile 在默认配置之上读取配置文件；文件不存在时直接返回默认配置
func LoadFromFile(filename string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}

	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return c, nil
}

// ApplyEnv 使用环境变量覆盖配置
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(target *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*target = v
				return
			}
		}
	}

	set(&c.Zulip.Email, "ZULIP_EMAIL")
	set(&c.Zulip.APIKey, "ZULIP_API_KEY", "ZULIP_API_SECRET")
	set(&c.Zulip.Site, "ZULIP_SITE")
	set(&c.Email.SendGridAPIKey, "SENDGRID_API_KEY")
	set(&c.Email.SenderEmail, "SENDER_EMAIL")
	set(&c.Schedule.Day, "HEROKU_CRON_DAY")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.Log.Level, "LOG_LEVEL")
}

// SetCredentials 使用命令行传入的服务账号凭据
func (c *Config) SetCredentials(email, apiKey string) {
	c.Zulip.Email = email
	c.Zulip.APIKey = apiKey
}

// SiteName 返回站点域名
func (c *Config) SiteName() string {
	site := c.Zulip.Site
	if site == "" {
		if i := strings.LastIndex(c.Zulip.Email, "@"); i >= 0 {
			site = c.Zulip.Email[i+1:]
		}
	}
	site = strings.TrimPrefix(site, "https://")
	site = strings.TrimPrefix(site, "http://")
	return strings.TrimSuffix(site, "/")
}

// RequestTimeout 返回单次请求超时
func (c *Config) RequestTimeout() time.Duration {
	if c.Zulip.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Zulip.Timeout) * time.Second
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	// 验证 Zulip
	if c.Zulip.Email == "" {
		return fmt.Errorf("Zulip.Email 不能为空")
	}
	if !strings.Contains(c.Zulip.Email, "@") {
		return fmt.Errorf("Zulip.Email 格式错误: %s", c.Zulip.Email)
	}
	if c.Zulip.APIKey == "" {
		return fmt.Errorf("Zulip.APIKey 不能为空")
	}
	if c.SiteName() == "" {
		return fmt.Errorf("Zulip.Site 不能为空")
	}
	if c.Zulip.Timeout < 0 {
		return fmt.Errorf("Zulip.Timeout 必须 >= 0")
	}

	// 验证 Fetch
	if c.Fetch.NumBefore <= 0 {
		return fmt.Errorf("Fetch.NumBefore 必须大于 0")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("Fetch.Concurrency 必须大于 0")
	}

	// 验证 Summary
	if c.Summary.RangeDays <= 0 {
		return fmt.Errorf("Summary.RangeDays 必须大于 0")
	}

	// 验证 Schedule
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("Schedule.Cron 格式错误: %w", err)
		}
	}
	if c.Schedule.Day != "" {
		if _, err := ParseWeekday(c.Schedule.Day); err != nil {
			return err
		}
	}

	// 验证 Email
	if c.Email.SendGridAPIKey != "" && c.Email.SenderEmail == "" {
		return fmt.Errorf("Email.SenderEmail 不能为空（当配置了 SendGridAPIKey 时）")
	}

	// 验证 LLM
	if c.LLM.APIKey != "" {
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("LLM.BaseURL 不能为空")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("LLM.Model 不能为空")
		}
		if c.LLM.MaxTokens <= 2000 {
			return fmt.Errorf("LLM.MaxTokens 必须大于 2000")
		}
	}

	// 验证 Log
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("Log.Level 格式错误: %w", err)
	}

	return nil
}

// ParseWeekday 解析星期名称，大小写不敏感，支持 "Monday" 与 "Mon"
func ParseWeekday(name string) (time.Weekday, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("无法识别的星期: %q", name)
}
