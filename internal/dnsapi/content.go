package dnsapi

import (
	"fmt"
	"strings"
)

// forward-email TXT 记录的内容格式：
//
//	"forward-email=alias1:dest1,alias1:webhookURL,alias2:webhookURL,..."
//
// 每个活跃别名至少要有一条指向 webhook 的规则，入站捕获才能工作；
// 启用外部转发的别名额外有一条 alias:forwardTo 规则。
const forwardEmailPrefix = "forward-email="

// Rule 一条别名路由规则
type Rule struct {
	Alias       string
	Destination string
}

// BuildAliasRules 生成某个别名的完整规则集。
// webhook 规则始终存在；forwardTo 非空时转发规则排在前面（与中继商的求值顺序一致）。
func BuildAliasRules(alias, webhookURL, forwardTo string) []Rule {
	if forwardTo != "" {
		return []Rule{
			{Alias: alias, Destination: forwardTo},
			{Alias: alias, Destination: webhookURL},
		}
	}
	return []Rule{{Alias: alias, Destination: webhookURL}}
}

// BuildContent 把规则集编码为 TXT 记录内容（带引号包裹）
func BuildContent(rules []Rule) string {
	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		parts = append(parts, rule.Alias+":"+rule.Destination)
	}
	return fmt.Sprintf("%q", forwardEmailPrefix+strings.Join(parts, ","))
}

// ParseContent 解析 TXT 记录内容为规则集。
// 不是 forward-email 记录时返回 false。
func ParseContent(content string) ([]Rule, bool) {
	trimmed := strings.Trim(strings.TrimSpace(content), `"`)
	if !strings.HasPrefix(trimmed, forwardEmailPrefix) {
		return nil, false
	}

	body := strings.TrimPrefix(trimmed, forwardEmailPrefix)
	if body == "" {
		return []Rule{}, true
	}

	parts := strings.Split(body, ",")
	rules := make([]Rule, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// 目的地里可能带冒号（https://...），只按第一个冒号切分
		idx := strings.Index(part, ":")
		if idx <= 0 {
			continue
		}
		rules = append(rules, Rule{
			Alias:       part[:idx],
			Destination: part[idx+1:],
		})
	}
	return rules, true
}

// ContainsAlias 判断记录内容里是否有某个别名的规则
func ContainsAlias(content, alias string) bool {
	rules, ok := ParseContent(content)
	if !ok {
		return false
	}
	for _, rule := range rules {
		if rule.Alias == alias {
			return true
		}
	}
	return false
}

// ReplaceAliasRules 重建记录内容：剔除某别名的全部旧规则，换入新规则集，
// 其他别名的规则原样保留、顺序不变。
func ReplaceAliasRules(content, alias string, replacement []Rule) (string, bool) {
	rules, ok := ParseContent(content)
	if !ok {
		return "", false
	}

	out := make([]Rule, 0, len(rules)+len(replacement))
	inserted := false
	for _, rule := range rules {
		if rule.Alias == alias {
			// 在旧规则第一次出现的位置换入新规则，保持别名间的相对顺序
			if !inserted {
				out = append(out, replacement...)
				inserted = true
			}
			continue
		}
		out = append(out, rule)
	}
	if !inserted {
		out = append(out, replacement...)
	}
	return BuildContent(out), true
}

// RemoveAliasRules 从记录内容中剔除某别名的全部规则
func RemoveAliasRules(content, alias string) (string, bool) {
	rules, ok := ParseContent(content)
	if !ok {
		return "", false
	}
	out := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Alias != alias {
			out = append(out, rule)
		}
	}
	return BuildContent(out), true
}
