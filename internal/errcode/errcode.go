package errcode

// 错误码约定（写入响应信封的 code 字段）：
// - 0：无错误
// - 422：参数校验失败
// - 4xxx：业务错误（资源缺失、权限不足等）
// - 5xxx：系统错误（配置缺失、外部进程失败等）
const (
	OK               = 0
	ValidationFailed = 422
	Unauthorized     = 4001
	Forbidden        = 4003
	NotFound         = 4004
	RateLimited      = 4029
	SystemError      = 5000
	ConfigError      = 5001
	RenderError      = 5002
)
