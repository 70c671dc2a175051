package notify

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fachebot/stream-digest/internal/config"
	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/zulip"
	"github.com/pkg/browser"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	ModeEmail  = "email"
	ModeViewer = "viewer"
)

type memberSource interface {
	GetMembers(ctx context.Context) ([]zulip.Member, error)
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type Notifier struct {
	mode    string
	from    string
	members memberSource
	sender  mailSender
	open    func(path string) error
	tempDir string
	timeout time.Duration
}

// NewNotifier 配置了 SendGrid API Key 时以邮件方式投递，否则写入临时文件并用浏览器打开。
// timeout 限制成员列表与邮件发送两次请求各自的耗时
func NewNotifier(cfg *config.Email, members memberSource, timeout time.Duration) *Notifier {
	n := &Notifier{
		mode:    ModeViewer,
		from:    cfg.SenderEmail,
		members: members,
		open:    browser.OpenFile,
		timeout: timeout,
	}
	if cfg.SendGridAPIKey != "" {
		n.mode = ModeEmail
		n.sender = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	}
	return n
}

func (n *Notifier) Mode() string {
	return n.mode
}

// Deliver 投递渲染好的文档。失败只记录日志并返回 false，不中断流程
func (n *Notifier) Deliver(ctx context.Context, subject, html string) bool {
	var err error
	switch n.mode {
	case ModeEmail:
		err = n.sendEmail(ctx, subject, html)
	default:
		err = n.showInViewer(html)
	}
	if err != nil {
		logger.Errorf("[Notify] 投递失败, mode: %s, %v", n.mode, err)
		return false
	}
	return true
}

// recipients 返回全部非机器人成员
func (n *Notifier) recipients(ctx context.Context) ([]zulip.Member, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	members, err := n.members.GetMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取成员列表失败: %w", err)
	}

	result := make([]zulip.Member, 0, len(members))
	for _, m := range members {
		if !m.IsBot {
			result = append(result, m)
		}
	}
	return result, nil
}

// sendEmail 一次请求发送给全部收件人，每位收件人单独一个 personalization
func (n *Notifier) sendEmail(ctx context.Context, subject, html string) error {
	to, err := n.recipients(ctx)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		return fmt.Errorf("没有可投递的收件人")
	}

	message := buildMail(n.from, subject, html, to)
	logger.Infof("[Notify] 发送邮件, 收件人数: %d", len(to))

	sendCtx, cancel := n.withTimeout(ctx)
	defer cancel()

	resp, err := n.sender.SendWithContext(sendCtx, message)
	if err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("发送邮件失败, status: %d, body: %s", resp.StatusCode, resp.Body)
	}

	logger.Infof("[Notify] 邮件已发送, status: %d", resp.StatusCode)
	return nil
}

func (n *Notifier) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, n.timeout)
}

func buildMail(from, subject, html string, to []zulip.Member) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail("", from))
	message.Subject = subject
	message.AddContent(mail.NewContent("text/html", html))
	for _, m := range to {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail(m.FullName, m.Email))
		message.AddPersonalizations(p)
	}
	return message
}

// showInViewer 写入临时文件后用系统默认浏览器打开，文件保留以便浏览器读取
func (n *Notifier) showInViewer(html string) error {
	f, err := os.CreateTemp(n.tempDir, "weekly-summary-*.html")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}

	logger.Infof("[Notify] 已写入 %s", f.Name())
	if err := n.open(f.Name()); err != nil {
		return fmt.Errorf("打开浏览器失败: %w", err)
	}
	return nil
}
