package digest

import "time"

// FilterByTime 保留时间戳落在 [start, end] 内的消息（秒级精度，两端包含）
func FilterByTime(messages []Message, start, end time.Time) []Message {
	lo, hi := start.Unix(), end.Unix()
	result := make([]Message, 0, len(messages))
	for _, m := range messages {
		ts := m.Timestamp.Unix()
		if lo <= ts && ts <= hi {
			result = append(result, m)
		}
	}
	return result
}

// FilterIgnored 去掉服务账号自己发送的消息以及提及服务账号的消息
func FilterIgnored(messages []Message, self string) []Message {
	result := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Sender == self || m.HasFlag(FlagMentioned) {
			continue
		}
		result = append(result, m)
	}
	return result
}

// Filter 依次应用时间过滤和相关性过滤，保持原有顺序
func Filter(messages []Message, start, end time.Time, self string) []Message {
	return FilterIgnored(FilterByTime(messages, start, end), self)
}
