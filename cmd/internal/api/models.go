package api

type statusResponse struct {
	Status string `json:"status"`
}

type messageResponse struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
}

type pageResponse struct {
	Items  []messageResponse `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type senderStatsResponse struct {
	Sender string `json:"sender"`
	Count  int64  `json:"count"`
}

type statsResponse struct {
	TotalMessages     int64                 `json:"total_messages"`
	SendersCount      int64                 `json:"senders_count"`
	MessagesPerSender []senderStatsResponse `json:"messages_per_sender"`
	FirstMessageTS    *string               `json:"first_message_ts"`
	LastMessageTS     *string               `json:"last_message_ts"`
}
