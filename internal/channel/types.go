// Package channel implements the Channel record (spec.md §3), its
// gorm-backed store, the constant-time custom-key resolver (§4.2), and
// the model-name mapper (§4.3's "model mapping" rule), grounded on the
// teacher's internal/database/models.go and
// original_source/src/channels/channel_manager.py.
package channel

import (
	"time"

	"chatproxy/internal/wire"
)

// ProxyKind is the closed enum of outbound proxy schemes a channel may
// configure.
type ProxyKind string

const (
	ProxyNone   ProxyKind = ""
	ProxyHTTP   ProxyKind = "http"
	ProxyHTTPS  ProxyKind = "https"
	ProxySOCKS5 ProxyKind = "socks5"
)

// ProxyConfig is a channel's optional outbound proxy.
type ProxyConfig struct {
	Kind     ProxyKind `gorm:"column:proxy_kind"`
	Host     string    `gorm:"column:proxy_host"`
	Port     int       `gorm:"column:proxy_port"`
	User     string    `gorm:"column:proxy_user"`
	Password string    `gorm:"column:proxy_password"`
}

func (p ProxyConfig) Enabled() bool { return p.Kind != ProxyNone && p.Host != "" }

// Channel is the persisted record of spec.md §3. EncryptedCredential is
// the only field that is ever at rest in ciphertext; Credential (the
// plaintext) exists only transiently, populated by Store.FindByCustomKey.
type Channel struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Description string
	Family      wire.Family `gorm:"column:family"`

	BaseURL             string
	EncryptedCredential string `gorm:"column:encrypted_credential"`

	CustomKey string `gorm:"column:custom_key;uniqueIndex"`

	TimeoutSeconds int
	MaxRetries     int
	Enabled        bool

	Proxy ProxyConfig `gorm:"embedded"`

	ModelMapping ModelMapping `gorm:"column:model_mapping;serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Credential is populated only by Store.FindByCustomKey, decrypted
	// for the duration of one dispatch; never persisted, never logged.
	Credential string `gorm:"-"`
}

// ModelMapping is a requested-name -> substitute-name table.
type ModelMapping map[string]string

func (m Channel) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}
