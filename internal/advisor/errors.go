package advisor

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrUnavailable 表示没有配置推理服务的凭证，这是正常情况而不是故障
	ErrUnavailable = errors.New("advisor: reasoning provider not configured")
	// ErrMalformedResponse 表示模型返回的内容不符合要求的结构
	ErrMalformedResponse = errors.New("advisor: malformed response")
)

var quotaSignatures = []string{"insufficient_quota", "quota", "rate limit", "rate_limited", "429"}

// IsQuotaError 判断错误是否属于配额或限流
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// fallsBackQuietly 为 true 时使用降级结果且不附带错误信息
func fallsBackQuietly(err error) bool {
	return errors.Is(err, ErrUnavailable) || IsQuotaError(err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// diagnostic 返回可以放进提示信息中的截断后的错误描述
func diagnostic(err error) string {
	return truncate(err.Error(), 200)
}
