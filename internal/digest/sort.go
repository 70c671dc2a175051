package digest

import "sort"

// SortTopics 按消息数降序稳定排序频道内的话题，不修改入参
func SortTopics(cd ChannelDigest) ChannelDigest {
	topics := make([]TopicGroup, len(cd.Topics))
	copy(topics, cd.Topics)
	sort.SliceStable(topics, func(i, j int) bool {
		return len(topics[i].Messages) > len(topics[j].Messages)
	})
	return ChannelDigest{Channel: cd.Channel, Topics: topics}
}

// Sort 按话题数降序稳定排序频道，并对每个频道的话题排序；相同数量保持原有相对顺序
func Sort(channels []ChannelDigest) []ChannelDigest {
	sorted := make([]ChannelDigest, len(channels))
	for i, cd := range channels {
		sorted[i] = SortTopics(cd)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Topics) > len(sorted[j].Topics)
	})
	return sorted
}
