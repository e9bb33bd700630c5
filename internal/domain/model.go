package domain

import "time"

// ChatModel is the GORM model for the chats table.
type ChatModel struct {
	PurchaseID  string    `gorm:"type:varchar(64);primaryKey"`
	LastSeq     uint64    `gorm:"not null;default:0"`
	LastUpdated time.Time `gorm:"index;not null"`
}

// TableName specifies the table name for ChatModel.
func (ChatModel) TableName() string {
	return "chats"
}

// MessageModel is the GORM model for the chat_messages table.
type MessageModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	PurchaseID string    `gorm:"type:varchar(64);index:idx_purchase_seq,unique,priority:1;not null"`
	Seq        uint64    `gorm:"index:idx_purchase_seq,unique,priority:2;not null"`
	Sender     string    `gorm:"type:varchar(128);not null"`
	SenderRole string    `gorm:"type:varchar(20);not null"`
	Content    string    `gorm:"type:text;not null"`
	Timestamp  time.Time `gorm:"index;not null"`
	Read       bool      `gorm:"column:is_read;not null;default:false"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		PurchaseID: m.PurchaseID,
		Seq:        m.Seq,
		Sender:     m.Sender,
		SenderRole: Role(m.SenderRole),
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		Read:       m.Read,
	}
}

// MessageToModel converts a domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		PurchaseID: msg.PurchaseID,
		Seq:        msg.Seq,
		Sender:     msg.Sender,
		SenderRole: string(msg.SenderRole),
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
		Read:       msg.Read,
	}
}

// ToDomain converts ChatModel to a domain Chat.
func (m *ChatModel) ToDomain() *Chat {
	return &Chat{
		PurchaseID:  m.PurchaseID,
		LastSeq:     m.LastSeq,
		LastUpdated: m.LastUpdated,
	}
}
