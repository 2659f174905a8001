package collector

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/config"
	"github.com/stats-collector/pkg/convert"
	"github.com/stats-collector/pkg/logger"
	"github.com/stats-collector/pkg/record"
	"github.com/stats-collector/pkg/source"
)

const (
	PluginNginx = "nginxplus"

	DocServerStats = "serverStats"
)

var (
	nginxDetailsLayout = record.Layout{
		"nginxVersion":   convert.None,
		"nginxBuild":     convert.None,
		"processRunning": false,
		"upTime":         0.0,
		"nginxOS":        convert.None,
	}
	nginxStatsLayout = record.Layout{
		"activeConnections":   int64(0),
		"acceptedConnections": int64(0),
		"activeWaiting":       int64(0),
		"droppedConnections":  int64(0),
		"currentRequests":     int64(0),
		"totalRequests":       int64(0),
		"requestsPerSecond":   0.0,
		"handshakes":          int64(0),
		"handshakesFailed":    int64(0),
		"sessionReuses":       int64(0),
		"processRespawned":    int64(0),
	}
)

// NGINX Plus API 响应
type (
	nginxInfo struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	}
	nginxConnections struct {
		Accepted int64 `json:"accepted"`
		Dropped  int64 `json:"dropped"`
		Active   int64 `json:"active"`
		Idle     int64 `json:"idle"`
	}
	nginxRequests struct {
		Total   int64 `json:"total"`
		Current int64 `json:"current"`
	}
	nginxSSL struct {
		Handshakes       int64 `json:"handshakes"`
		HandshakesFailed int64 `json:"handshakes_failed"`
		SessionReuses    int64 `json:"session_reuses"`
	}
	nginxProcesses struct {
		Respawned int64 `json:"respawned"`
	}
)

// NginxCollector NGINX Plus API 与本机 nginx 进程信息
type NginxCollector struct {
	base
	fetcher  source.Fetcher
	host     source.Host
	baseURL  string
	version  string // 为空时每个周期重新探测，探测成功后固定
	docTypes []string
}

// NewNginxCollector 每个监控目标一个采集器
func NewNginxCollector(cfg config.NginxConfig, target config.NginxTarget, fetcher source.Fetcher, host source.Host, deps Deps) *NginxCollector {
	name := target.DisplayName()
	return &NginxCollector{
		base:     newBase("nginx/"+name, PluginNginx, name, deps),
		fetcher:  fetcher,
		host:     host,
		baseURL:  strings.TrimRight(target.BaseURL, "/"),
		version:  target.APIVersion,
		docTypes: cfg.DocumentTypes,
	}
}

func (c *NginxCollector) Init() error {
	if c.baseURL == "" {
		return fmt.Errorf("%s: empty base url", c.name)
	}
	return nil
}

func (c *NginxCollector) Collect(ctx context.Context) error {
	return c.runCycle(ctx, func(ctx context.Context, cy *cycle) error {
		if err := c.discoverVersion(ctx); err != nil {
			return err
		}
		if record.Allowed(c.docTypes, DocServerDetails) {
			details, err := c.details(ctx)
			if err != nil {
				return err
			}
			cy.emit(DocServerDetails, details, nginxDetailsLayout)
		}
		if record.Allowed(c.docTypes, DocServerStats) {
			stats, err := c.stats(ctx, cy)
			if err != nil {
				return err
			}
			if len(stats) > 0 {
				cy.emit(DocServerStats, stats, nginxStatsLayout)
			}
		}
		return nil
	})
}

func (c *NginxCollector) Close() error { return nil }

// APIVersion 当前使用的 API 版本，尚未探测到时为空
func (c *NginxCollector) APIVersion() string { return c.version }

// discoverVersion GET /api/ 返回支持的版本列表，取最大值
func (c *NginxCollector) discoverVersion(ctx context.Context) error {
	if c.version != "" {
		return nil
	}
	var versions []int
	status, err := c.fetcher.GetJSON(ctx, c.baseURL+"/api/", &versions)
	if err != nil {
		return err
	}
	if status != 200 || len(versions) == 0 {
		return fmt.Errorf("api version discovery: status %d: %w", status, source.ErrUpstreamUnavailable)
	}
	c.version = strconv.Itoa(slices.Max(versions))
	logger.Info("nginx api version discovered", zap.String("collector", c.name), zap.String("version", c.version))
	return nil
}

// get 非 200 返回 false，对应字段留空
func (c *NginxCollector) get(ctx context.Context, endpoint string, out any) (bool, error) {
	status, err := c.fetcher.GetJSON(ctx, c.baseURL+"/api/"+c.version+"/"+endpoint, out)
	if err != nil {
		return false, err
	}
	if status != 200 {
		logger.Debug("nginx endpoint unavailable",
			zap.String("collector", c.name),
			zap.String("endpoint", endpoint),
			zap.Int("status", status))
		return false, nil
	}
	return true, nil
}

func (c *NginxCollector) details(ctx context.Context) (map[string]any, error) {
	fields := map[string]any{}
	var info nginxInfo
	ok, err := c.get(ctx, "nginx", &info)
	if err != nil {
		return nil, err
	}
	if ok {
		fields["nginxVersion"] = info.Version
		fields["nginxBuild"] = info.Build
	}

	procs, err := c.host.FindProcesses(ctx, "nginx")
	if err != nil {
		return nil, err
	}
	fields["processRunning"] = len(procs) > 0
	// 运行时长取最早启动的进程（master）
	if len(procs) > 0 {
		started := procs[0].Started
		for _, p := range procs[1:] {
			if p.Started.Before(started) {
				started = p.Started
			}
		}
		fields["upTime"] = convert.Round2(c.deps.now().Sub(started).Minutes())
	}

	if platform, err := c.host.Platform(ctx); err == nil && platform != "" {
		fields["nginxOS"] = platform
	}
	return fields, nil
}

// stats 所有接口都不可用时返回空
func (c *NginxCollector) stats(ctx context.Context, cy *cycle) (map[string]any, error) {
	fields := map[string]any{}

	var conns nginxConnections
	ok, err := c.get(ctx, "connections", &conns)
	if err != nil {
		return nil, err
	}
	if ok {
		fields["activeConnections"] = conns.Active
		fields["acceptedConnections"] = conns.Accepted
		fields["activeWaiting"] = conns.Idle
		fields["droppedConnections"] = conns.Dropped
	}

	var reqs nginxRequests
	if ok, err = c.get(ctx, "http/requests", &reqs); err != nil {
		return nil, err
	}
	if ok {
		fields["currentRequests"] = reqs.Current
		fields["totalRequests"] = reqs.Total
		fields["requestsPerSecond"] = convert.Round2(cy.observe("totalRequests", float64(reqs.Total)).RateOr(0))
	}

	var ssl nginxSSL
	if ok, err = c.get(ctx, "ssl", &ssl); err != nil {
		return nil, err
	}
	if ok {
		fields["handshakes"] = ssl.Handshakes
		fields["handshakesFailed"] = ssl.HandshakesFailed
		fields["sessionReuses"] = ssl.SessionReuses
	}

	var procs nginxProcesses
	if ok, err = c.get(ctx, "processes", &procs); err != nil {
		return nil, err
	}
	if ok {
		fields["processRespawned"] = procs.Respawned
	}
	return fields, nil
}
