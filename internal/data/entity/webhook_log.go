package entity

type WebhookLog struct {
	BaseSimple
	Provider  string  `db:"provider"`
	EventType string  `db:"event_type"`
	EventID   string  `db:"event_id"`
	Payload   []byte  `db:"payload"`
	Success   bool    `db:"success"`
	Response  *string `db:"response"`
}
