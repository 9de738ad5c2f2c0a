package entity

// Operator оператор линии, управляющий инспекцией через Telegram
type Operator struct {
	ID         int64 // Telegram User ID
	ChatID     int64 // Telegram Chat ID
	Subscribed bool  // Получает уведомления о вердиктах
}

// NewOperator создаёт оператора без подписки
func NewOperator(userID, chatID int64) *Operator {
	return &Operator{
		ID:     userID,
		ChatID: chatID,
	}
}

// SetSubscribed включает или выключает уведомления
func (o *Operator) SetSubscribed(on bool) {
	o.Subscribed = on
}
