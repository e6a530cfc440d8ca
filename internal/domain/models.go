// Package domain defines the persistence models shared by every messaging
// platform the relay supports. These types are mapped with GORM and form the
// core data layer of the application.
package domain

import (
	"time"
)

// Platform names stored in the Platform / Channel columns.
const (
	PlatformSlack    = "slack"
	PlatformWhatsApp = "whatsapp"
	PlatformWeb      = "web"
)

// Message direction values.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Sender types.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// AdminUser is an operator account allowed to call the admin API.
// Authentication is a single bearer token role; rows exist for audit only.
type AdminUser struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Username  string    `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	Email     string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex"`
	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdminUser.
func (AdminUser) TableName() string { return "admin_users" }

// User tracks a message sender across platforms. A sender is identified by
// the (platform, platform_user_id) pair, unique together; the row is upserted
// on every inbound event and never deleted by the relay.
type User struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	Platform       string         `json:"platform"         gorm:"type:varchar(50);not null;index;uniqueIndex:ux_platform_user,priority:1"`
	PlatformUserID string         `json:"platform_user_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_platform_user,priority:2"`
	DisplayName    string         `json:"display_name"     gorm:"type:varchar(255);index"`
	Email          string         `json:"email"            gorm:"type:varchar(255)"`
	Metadata       map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Channel is a conversation surface on a platform (a Slack channel, a
// WhatsApp chat). Identified by (platform, platform_channel_id), unique
// together, upserted on every inbound event.
type Channel struct {
	ID                string         `json:"id"                  gorm:"type:char(36);primaryKey"`
	Platform          string         `json:"platform"            gorm:"type:varchar(50);not null;index;uniqueIndex:ux_platform_channel,priority:1"`
	PlatformChannelID string         `json:"platform_channel_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_platform_channel,priority:2"`
	Name              string         `json:"name"                gorm:"type:varchar(255)"`
	IsActive          bool           `json:"is_active"           gorm:"default:true;index"`
	Metadata          map[string]any `json:"metadata,omitempty"  gorm:"serializer:json"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName returns the database table name for Channel.
func (Channel) TableName() string { return "channels" }

// Message is the unified record of one utterance, inbound or outbound, on any
// platform.
//
// Invariant: MessageID (the platform-native message id) is globally unique.
// Writing the same id twice is a no-op that returns the existing row, which
// makes the store idempotent under webhook redelivery.
type Message struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	MessageID  string         `json:"message_id"  gorm:"type:varchar(255);not null;uniqueIndex"`
	Platform   string         `json:"platform"    gorm:"type:varchar(50);not null;index"`
	Direction  string         `json:"direction"   gorm:"type:varchar(20);not null;index;check:direction IN ('inbound','outbound')"`
	SenderType string         `json:"sender_type" gorm:"type:varchar(20);not null;index;check:sender_type IN ('user','bot')"`
	UserID     *string        `json:"user_id,omitempty"    gorm:"type:char(36);index"`
	ChannelID  *string        `json:"channel_id,omitempty" gorm:"type:char(36);index:idx_channel_ts,priority:1"`
	Text       string         `json:"text"        gorm:"type:text"`
	Timestamp  time.Time      `json:"timestamp"   gorm:"not null;index:idx_channel_ts,priority:2"`
	Metadata   map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt  time.Time      `json:"created_at"  gorm:"index"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// FK associations. Both are nullable: outbound bot messages carry no user,
	// and rows survive user/channel deletion.
	User    *User    `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Channel *Channel `json:"-" gorm:"foreignKey:ChannelID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
