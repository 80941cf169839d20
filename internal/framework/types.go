package framework

// Message 消息结构（框架内部流转）
type Message struct {
	ID       string                 // 消息 ID
	Queue    string                 // 队列名称
	Data     []byte                 // 原始队列数据
	Attempts int                    // 已投递次数（首次为 0）
	Extra    map[string]interface{} // 扩展字段
}
