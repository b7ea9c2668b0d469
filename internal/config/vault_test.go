package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveVault_Success(t *testing.T) {
	// Mock Vault server returning KV v2 style response
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/catalog" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"conn": "postgres://catalog:s3cret@db:5432/catalog",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
	t.Setenv("VAULT_NAMESPACE", "")

	val, err := resolveVault("secret/data/catalog#conn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "postgres://catalog:s3cret@db:5432/catalog" {
		t.Errorf("unexpected secret value %q", val)
	}
}

func TestResolveVault_NamespaceHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Namespace") != "team-data" {
			http.Error(w, "wrong namespace", http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"conn": "mongodb://db:27017",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
	t.Setenv("VAULT_NAMESPACE", "team-data")

	val, err := resolveVault("secret/data/catalog#conn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "mongodb://db:27017" {
		t.Errorf("unexpected secret value %q", val)
	}
}

func TestResolveVault_MissingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"username": "admin",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
	t.Setenv("VAULT_NAMESPACE", "")

	_, err := resolveVault("secret/data/catalog#nonexistent")
	if err == nil {
		t.Error("expected error for missing key")
	}
}

func TestResolveVault_InvalidFormat(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://localhost:8200")
	t.Setenv("VAULT_TOKEN", "test-token")

	_, err := resolveVault("no-hash-separator")
	if err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestResolveVault_MissingEnv(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	_, err := resolveVault("secret/data/path#key")
	if err == nil {
		t.Error("expected error when VAULT_ADDR not set")
	}
}

func TestResolveValue_Vault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					"db_pass": "hunter2",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
	t.Setenv("VAULT_NAMESPACE", "")

	val, err := ResolveValue("${VAULT:secret/data/catalog#db_pass}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hunter2" {
		t.Errorf("expected 'hunter2', got %q", val)
	}
}
