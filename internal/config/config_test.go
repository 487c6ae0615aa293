package config

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestFileOverridesDefaults(t *testing.T) {
	cfg := Default()
	doc := `
[kafkaConfig]
messageMode = "kafka"

[chatConfig]
readBatchSize = 200
`
	if _, err := toml.Decode(doc, cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.KafkaConfig.MessageMode != "kafka" {
		t.Fatalf("messageMode = %q", cfg.KafkaConfig.MessageMode)
	}
	if cfg.ChatConfig.ReadBatchSize != 200 {
		t.Fatalf("readBatchSize = %d", cfg.ChatConfig.ReadBatchSize)
	}
	// 未出现在文件中的字段保留默认值
	if cfg.ChatConfig.HistoryDefaultLimit != 50 || cfg.DatabaseConfig.Driver != "mysql" {
		t.Fatalf("defaults were clobbered: %+v", cfg.ChatConfig)
	}
}
