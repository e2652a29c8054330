package rpcnode

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_LoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pastel.conf")
	content := "rpcuser=testuser\n" +
		"rpcpassword=testpass\n" +
		"rpcport=29932\n" +
		"rpchost=example.com\n" +
		"\n" +
		"txindex=1\n" +
		"server = 1\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config : %s", err)
	}

	config, flags, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config : %s", err)
	}

	if config.Username != "testuser" {
		t.Fatalf("wrong username : %s", config.Username)
	}
	if config.Password != "testpass" {
		t.Fatalf("wrong password")
	}
	if config.Port != 29932 {
		t.Fatalf("wrong port : %d", config.Port)
	}

	// rpchost is ignored, the endpoint is always local.
	if config.Host != DefaultHost {
		t.Fatalf("wrong host : %s", config.Host)
	}
	if config.URL() != "http://127.0.0.1:29932" {
		t.Fatalf("wrong url : %s", config.URL())
	}

	if flags["txindex"] != "1" || flags["server"] != "1" {
		t.Fatalf("other flags not retained : %v", flags)
	}
	if _, exists := flags["rpcuser"]; exists {
		t.Fatalf("rpc keys leaked into flags")
	}
}

func Test_LoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pastel.conf")
	if err := os.WriteFile(path, []byte("rpcuser=u\nrpcpassword=p\n"), 0644); err != nil {
		t.Fatalf("failed to write config : %s", err)
	}

	config, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config : %s", err)
	}

	if config.Port != DefaultPort {
		t.Fatalf("wrong default port : %d", config.Port)
	}
	if config.MaxRetries != DefaultMaxRetries {
		t.Fatalf("wrong default retries : %d", config.MaxRetries)
	}
	if config.MaxInFlight != DefaultMaxInFlight {
		t.Fatalf("wrong default in-flight cap : %d", config.MaxInFlight)
	}
}

func Test_Config_String_MasksPassword(t *testing.T) {
	config := Config{Username: "user", Password: "secret"}
	if s := config.String(); s == "" || containsSecret(s) {
		t.Fatalf("password leaked into string : %s", s)
	}
}

func containsSecret(s string) bool {
	for i := 0; i+6 <= len(s); i++ {
		if s[i:i+6] == "secret" {
			return true
		}
	}
	return false
}
