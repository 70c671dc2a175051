package digest

// GroupByTopic 按话题分组，话题顺序为首次出现顺序，组内保持原有顺序
func GroupByTopic(messages []Message) []TopicGroup {
	index := make(map[string]int)
	groups := make([]TopicGroup, 0)
	for _, m := range messages {
		i, ok := index[m.Topic]
		if !ok {
			i = len(groups)
			index[m.Topic] = i
			groups = append(groups, TopicGroup{Name: m.Topic})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	return groups
}
