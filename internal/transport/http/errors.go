package httptransport

import (
	"maildash/backend/internal/auth"
	"maildash/backend/internal/domain"
	"maildash/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 校验错误
	domain.ErrInvalidEmail:     "邮箱格式无效",
	domain.ErrAliasTooShort:    "别名长度至少为 2 个字符",
	domain.ErrAliasTooLong:     "别名长度不能超过 30 个字符",
	domain.ErrInvalidAlias:     "别名只能包含小写字母、数字、点和连字符",
	domain.ErrPasswordTooShort: "密码长度至少为 8 个字符",
	domain.ErrPasswordTooLong:  "密码过长",

	// 认证错误
	auth.ErrAliasExists:        "该别名已被注册",
	auth.ErrAccountNotFound:    "账户不存在",
	auth.ErrInvalidCredentials: "别名或密码错误",
	auth.ErrRegistrationClosed: "当前未开放注册",
	auth.ErrPassphraseRequired: "请输入注册口令",
	auth.ErrPassphraseMismatch: "注册口令错误",

	// 邮件错误
	service.ErrNoRecipientMatched: "没有匹配的收件人",
	service.ErrMessageNotFound:    "邮件不存在",
	service.ErrNotMessageOwner:    "您不是该邮件的所有者",
	service.ErrInvalidMessageType: "邮件类型无效",
	service.ErrMissingSendFields:  "收件人、主题和正文不能为空",
	service.ErrNoRecipients:       "至少需要一个收件人",

	// 管理错误
	service.ErrAdminRequired:     "需要管理员权限",
	service.ErrUserNotFound:      "用户不存在",
	service.ErrCannotDeleteSelf:  "管理员不能删除自己的账户",
	service.ErrCannotDeleteAdmin: "不能删除其他管理员账户",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest     = "请求参数格式错误"
	MsgAuthRequired       = "需要登录认证"
	MsgPermissionDenied   = "权限不足"
	MsgInvalidCredentials = "别名或密码错误"
	MsgUnparsableWebhook  = "无法解析的 webhook 负载"
	MsgSendFailed         = "邮件发送失败"
	MsgStorageFailed      = "存储操作失败"
	MsgInternalError      = "服务器内部错误"
)
