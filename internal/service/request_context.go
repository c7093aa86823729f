package service

import "context"

type requestInfoKey struct{}

// 提交方
const (
	ActorAPI     = "api"
	ActorCLI     = "cli"
	ActorConsole = "console"
)

// RequestInfo 审计日志需要的请求信息
type RequestInfo struct {
	Actor     string
	RequestID string
	IP        string
	UserAgent string
}

// WithRequestInfo 把请求信息放入 context
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext 从 context 读取请求信息,未设置时提交方视为 api
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	if info.Actor == "" {
		info.Actor = ActorAPI
	}
	return info
}

// GetClientIP 从 context 获取客户端 IP
func GetClientIP(ctx context.Context) string {
	return RequestInfoFromContext(ctx).IP
}

// GetUserAgent 从 context 获取 User Agent
func GetUserAgent(ctx context.Context) string {
	return RequestInfoFromContext(ctx).UserAgent
}
