package config

import (
	"reflect"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "MYSQL_DSN", "REDIS_ADDR", "KAFKA_BROKERS", "SERVICE_NAME", "SHOP_NAME"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MySQLDSN == "" {
		t.Error("MySQLDSN should have a default")
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr should default to empty, got %q", cfg.RedisAddr)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers should default to empty, got %v", cfg.KafkaBrokers)
	}
	if cfg.ServiceName != "pos-ledger" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
	if cfg.ShopName != "Supermarket" {
		t.Errorf("ShopName = %q", cfg.ShopName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("SHOP_NAME", "Corner Shop")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ShopName != "Corner Shop" {
		t.Errorf("ShopName = %q", cfg.ShopName)
	}
}
