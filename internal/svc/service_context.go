package svc

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/fachebot/stream-digest/internal/config"
	"github.com/fachebot/stream-digest/internal/llm"
	"github.com/fachebot/stream-digest/internal/logger"
	"github.com/fachebot/stream-digest/internal/model"
	"github.com/fachebot/stream-digest/internal/notify"
	"github.com/fachebot/stream-digest/internal/zulip"

	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config            *config.Config
	DB                *sql.DB // Storage.Path 为空或打开失败时为 nil
	TransportProxy    *http.Transport
	ZulipClient       *zulip.Client
	DigestRunModel    *model.DigestRunModel
	ChannelFetchModel *model.ChannelFetchModel
	LLMClient         *llm.Client // 未配置 LLM.APIKey 时为 nil
	Notifier          *notify.Notifier
}

func NewServiceContext(c *config.Config) *ServiceContext {
	// 创建SOCKS5代理
	var transportProxy *http.Transport
	if c.Sock5Proxy.Enable {
		socks5Proxy := fmt.Sprintf("%s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
		dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
		if err != nil {
			logger.Fatalf("创建SOCKS5代理失败, %v", err)
		}

		transportProxy = &http.Transport{
			Dial:            dialer.Dial,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	var transport http.RoundTripper
	if transportProxy != nil {
		transport = transportProxy
	}
	zulipClient := zulip.NewClient(c.SiteName(), c.Zulip.Email, c.Zulip.APIKey, c.RequestTimeout(), transport)

	svcCtx := &ServiceContext{
		Config:         c,
		TransportProxy: transportProxy,
		ZulipClient:    zulipClient,
		Notifier:       notify.NewNotifier(&c.Email, zulipClient, c.RequestTimeout()),
	}

	// 运行记录数据库，打开失败不影响摘要流程
	if c.Storage.Path != "" {
		db, err := model.Open(context.Background(), c.Storage.Path)
		if err != nil {
			logger.Errorf("[Svc] 打开运行记录数据库失败, 将不记录运行, %v", err)
		} else {
			svcCtx.DB = db
			svcCtx.DigestRunModel = model.NewDigestRunModel(db)
			svcCtx.ChannelFetchModel = model.NewChannelFetchModel(db)
		}
	}

	if c.LLM.APIKey != "" {
		var httpClient *http.Client
		if transportProxy != nil {
			httpClient = &http.Client{Transport: transportProxy}
		}
		svcCtx.LLMClient = llm.NewClient(&c.LLM, httpClient)
	}

	return svcCtx
}

func (svcCtx *ServiceContext) Close() {
	if svcCtx.DB == nil {
		return
	}
	if err := svcCtx.DB.Close(); err != nil {
		logger.Errorf("关闭数据库失败, %v", err)
	}
}
