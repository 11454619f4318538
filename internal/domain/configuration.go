package domain

import "time"

// Configuration groups.
const (
	GroupAPI    = "api"
	GroupPrompt = "prompt"
	GroupUI     = "ui"
	GroupCache  = "cache"
)

// Configuration is one admin-managed key/value setting.
type Configuration struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Group     string    `json:"group"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigurationModel maps to the configurations table.
type ConfigurationModel struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex;size:128;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	Group     string    `gorm:"column:group_name;size:32;index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName sets the table name for GORM.
func (ConfigurationModel) TableName() string {
	return "configurations"
}

// ToDomain converts the database model to the domain type.
func (m *ConfigurationModel) ToDomain() *Configuration {
	return &Configuration{
		Key:       m.Key,
		Value:     m.Value,
		Group:     m.Group,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ConfigurationToModel converts the domain type to the database model.
func ConfigurationToModel(c *Configuration) *ConfigurationModel {
	return &ConfigurationModel{
		Key:   c.Key,
		Value: c.Value,
		Group: c.Group,
	}
}

// ConfigurationUpdate is one entry of an admin write.
type ConfigurationUpdate struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// IsValidGroup reports whether g is one of the known configuration groups.
func IsValidGroup(g string) bool {
	switch g {
	case GroupAPI, GroupPrompt, GroupUI, GroupCache:
		return true
	}
	return false
}
